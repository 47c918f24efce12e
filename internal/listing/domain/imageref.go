package domain

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// RefKind identifies which storage backend an ImageRef points into.
type RefKind int

const (
	// RefUnknown is a stored value that could not be parsed. It is kept
	// verbatim so the document round-trips, and never resolves.
	RefUnknown RefKind = iota
	// RefInline is a data: URI held only while editing.
	RefInline
	// RefRemote is an object-store key, the default durable form.
	RefRemote
	// RefLocalFile is a legacy key served from the bridge's data directory.
	RefLocalFile
	// RefDeviceBlob is a legacy key into the device-local blob database.
	RefDeviceBlob
)

func (k RefKind) String() string {
	switch k {
	case RefInline:
		return "inline"
	case RefRemote:
		return "remote"
	case RefLocalFile:
		return "local_file"
	case RefDeviceBlob:
		return "device_blob"
	default:
		return "unknown"
	}
}

const (
	inlinePrefix     = "data:"
	localFilePrefix  = "local:"
	deviceBlobPrefix = "idb:"
)

// ImageRef is a tagged pointer to an image. Only ParseImageRef and String
// know the persisted string encoding.
type ImageRef struct {
	Kind     RefKind
	Key      string // storage key; raw text for RefUnknown
	MIMEType string // RefInline only
	Data     []byte // RefInline only
}

func RemoteRef(key string) ImageRef     { return ImageRef{Kind: RefRemote, Key: key} }
func LocalFileRef(name string) ImageRef { return ImageRef{Kind: RefLocalFile, Key: name} }
func DeviceBlobRef(id string) ImageRef  { return ImageRef{Kind: RefDeviceBlob, Key: id} }

func InlineRef(mimeType string, data []byte) ImageRef {
	return ImageRef{Kind: RefInline, MIMEType: mimeType, Data: data}
}

// ParseImageRef decodes the persisted form. The most specific prefix wins;
// anything else non-empty is a remote key.
func ParseImageRef(s string) (ImageRef, error) {
	switch {
	case s == "":
		return ImageRef{}, fmt.Errorf("%w: empty reference", ErrMalformedImageRef)
	case strings.HasPrefix(s, inlinePrefix):
		mimeType, data, err := DecodeDataURL(s)
		if err != nil {
			return ImageRef{}, err
		}
		return InlineRef(mimeType, data), nil
	case strings.HasPrefix(s, localFilePrefix):
		name := strings.TrimPrefix(s, localFilePrefix)
		if name == "" {
			return ImageRef{}, fmt.Errorf("%w: %q has no key", ErrMalformedImageRef, s)
		}
		return LocalFileRef(name), nil
	case strings.HasPrefix(s, deviceBlobPrefix):
		id := strings.TrimPrefix(s, deviceBlobPrefix)
		if id == "" {
			return ImageRef{}, fmt.Errorf("%w: %q has no key", ErrMalformedImageRef, s)
		}
		return DeviceBlobRef(id), nil
	default:
		return RemoteRef(s), nil
	}
}

func (r ImageRef) String() string {
	switch r.Kind {
	case RefInline:
		return EncodeDataURL(r.MIMEType, r.Data)
	case RefLocalFile:
		return localFilePrefix + r.Key
	case RefDeviceBlob:
		return deviceBlobPrefix + r.Key
	default:
		return r.Key
	}
}

// Durable reports whether the reference may be written to the shared
// document. Inline payloads never are, and neither are unparsable values
// that are empty or look like a data URL.
func (r ImageRef) Durable() bool {
	switch r.Kind {
	case RefInline:
		return false
	case RefUnknown:
		return r.Key != "" && !strings.HasPrefix(r.Key, inlinePrefix)
	default:
		return true
	}
}

func (r ImageRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON never fails on a malformed reference: the value is kept as
// RefUnknown so one bad entry does not poison the whole document.
func (r *ImageRef) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseImageRef(s)
	if err != nil {
		*r = ImageRef{Kind: RefUnknown, Key: s}
		return nil
	}
	*r = parsed
	return nil
}

// DecodeDataURL parses data:<mime>;base64,<payload>.
func DecodeDataURL(s string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(s, inlinePrefix)
	if !ok {
		return "", nil, fmt.Errorf("%w: not a data url", ErrMalformedImageRef)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("%w: data url has no payload", ErrMalformedImageRef)
	}
	mimeType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return "", nil, fmt.Errorf("%w: data url is not base64", ErrMalformedImageRef)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformedImageRef, err)
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return mimeType, data, nil
}

func EncodeDataURL(mimeType string, data []byte) string {
	return inlinePrefix + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
