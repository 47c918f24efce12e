package domain

import (
	"crypto/rand"
	"math/big"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	keyAlphabet  = "0123456789abcdefghijklmnopqrstuvwxyz"
	keySuffixLen = 6
	defaultKeyExt   = ".jpg"
)

var extByMIME = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
	"image/heic": ".heic",
}

// NewImageKey mints <base36 millis>-<6 random base36 chars><ext>. Keys sort by
// creation time and are never reused.
func NewImageKey(name, mimeType string) string {
	return newImageKeyAt(time.Now(), name, mimeType)
}

func newImageKeyAt(now time.Time, name, mimeType string) string {
	return strconv.FormatInt(now.UnixMilli(), 36) + "-" + randomSuffix() + keyExtension(name, mimeType)
}

func randomSuffix() string {
	var sb strings.Builder
	max := big.NewInt(int64(len(keyAlphabet)))
	for i := 0; i < keySuffixLen; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err)
		}
		sb.WriteByte(keyAlphabet[n.Int64()])
	}
	return sb.String()
}

func keyExtension(name, mimeType string) string {
	if mt := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0])); mt != "" {
		if ext, ok := extByMIME[mt]; ok {
			return ext
		}
	}
	if ext := strings.ToLower(filepath.Ext(name)); ext != "" && len(ext) <= 6 {
		return ext
	}
	return defaultKeyExt
}
