package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dov85/Apartment/internal/listing/domain"
	"github.com/dov85/Apartment/internal/listing/usecase"
)

// listingFields holds the flags shared by add and update.
type listingFields struct {
	title      string
	street     string
	city       string
	price      int64
	rooms      string
	phone      string
	link       string
	status     string
	floor      int
	rating     int
	notes      string
	remind     string
	remindNote string
	entryMonth string
	amenities  []string
}

var (
	addFields    listingFields
	addImages    []string
	updateFields listingFields
)

func registerListingFlags(cmd *cobra.Command, f *listingFields) {
	cmd.Flags().StringVar(&f.title, "title", "", "Listing title")
	cmd.Flags().StringVar(&f.street, "street", "", "Street address")
	cmd.Flags().StringVar(&f.city, "city", "", "City")
	cmd.Flags().Int64Var(&f.price, "price", 0, "Monthly price")
	cmd.Flags().StringVar(&f.rooms, "rooms", "", "Number of rooms, e.g. 3.5")
	cmd.Flags().StringVar(&f.phone, "phone", "", "Contact phone")
	cmd.Flags().StringVar(&f.link, "link", "", "Link to the original ad")
	cmd.Flags().StringVar(&f.status, "status", "", "Status: new, contacted, viewing_scheduled, visited, rejected, favorite")
	cmd.Flags().IntVar(&f.floor, "floor", 0, "Floor")
	cmd.Flags().IntVar(&f.rating, "rating", 0, "Rating from 1 to 10")
	cmd.Flags().StringVar(&f.notes, "notes", "", "Free-form notes")
	cmd.Flags().StringVar(&f.remind, "remind", "", "Reminder date (YYYY-MM-DD); empty clears it on update")
	cmd.Flags().StringVar(&f.remindNote, "remind-note", "", "Reminder note")
	cmd.Flags().StringVar(&f.entryMonth, "entry-month", "", "Entry month (YYYY-MM)")
	cmd.Flags().StringSliceVar(&f.amenities, "amenity", nil, "Amenity present, repeatable (e.g. parking, elevator)")
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load the collection and report where it came from",
	Long: `Load the best available collection: the shared copy when it has listings,
otherwise this device's cache, otherwise an empty collection.

Image references that no longer resolve on this device are dropped and the
cleaned collection is written back.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := newPrinter(cmd)
		c, err := client.engine.Load(cmd.Context())
		if err != nil {
			return p.fail(err)
		}
		src := client.engine.Source()
		data := map[string]any{"source": src.String(), "listings": len(c)}
		return p.done(data, func(w io.Writer) {
			fmt.Fprintln(w, successLine("Loaded %d listing(s) from %s", len(c), accent.Render(src.String())))
		})
	},
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all listings",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := newPrinter(cmd)
		if _, err := client.load(cmd.Context()); err != nil {
			return p.fail(err)
		}
		c, err := client.listings.ListListings(cmd.Context())
		if err != nil {
			return p.fail(err)
		}
		return p.done(c, func(w io.Writer) {
			if len(c) == 0 {
				fmt.Fprintln(w, muted.Render("No listings yet. Add one with: flatctl add --title ..."))
				return
			}
			for _, l := range c {
				formatListing(w, l)
			}
		})
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one listing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := newPrinter(cmd)
		if _, err := client.load(cmd.Context()); err != nil {
			return p.fail(err)
		}
		l, err := client.listings.GetListingByID(cmd.Context(), args[0])
		if err != nil {
			return p.fail(err)
		}
		return p.done(l, func(w io.Writer) {
			formatListing(w, *l)
			if l.Phone != "" {
				fmt.Fprintf(w, "  tel. %s\n", l.Phone)
			}
			if l.Link != "" {
				fmt.Fprintf(w, "  %s\n", accent.Render(l.Link))
			}
			if l.Notes != "" {
				fmt.Fprintf(w, "  %s\n", l.Notes)
			}
		})
	},
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a listing",
	Long: `Add a listing at the top of the collection. Image files given with --image
are uploaded first; the listing is only saved when every upload succeeded.

Examples:
  flatctl add --title "Sunny 3 rooms" --city Haifa --price 5200
  flatctl add --title "Garden flat" --image front.jpg --image kitchen.png`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := newPrinter(cmd)
		ctx := cmd.Context()
		if _, err := client.load(ctx); err != nil {
			return p.fail(err)
		}
		payloads, err := readImageFiles(addImages)
		if err != nil {
			return p.fail(err)
		}

		f := addFields
		in := usecase.CreateListingInput{
			Title:      f.title,
			Address:    domain.Address{Street: f.street, City: f.city},
			Price:      f.price,
			Rooms:      f.rooms,
			Phone:      f.phone,
			Link:       f.link,
			Status:     domain.ListingStatus(f.status),
			Notes:      f.notes,
			EntryMonth: f.entryMonth,
			Amenities:  amenitySet(f.amenities),
			Images:     payloads,
		}
		if cmd.Flags().Changed("floor") {
			in.Floor = &f.floor
		}
		if cmd.Flags().Changed("rating") {
			in.Rating = &f.rating
		}
		if f.remind != "" {
			in.Reminder = &domain.Reminder{Date: f.remind, Note: f.remindNote}
		}

		l, err := client.listings.CreateListing(ctx, in)
		if err := p.saved(err); err != nil {
			return p.fail(err)
		}
		return p.done(l, func(w io.Writer) {
			fmt.Fprintln(w, successLine("Added %s", accent.Render(l.ID)))
		})
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change fields of a listing",
	Long: `Change the fields given as flags; everything else is left as it is.

Examples:
  flatctl update 6f1c... --price 4900 --notes "negotiable"
  flatctl update 6f1c... --remind 2026-03-01 --remind-note "call owner"
  flatctl update 6f1c... --remind ""`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := newPrinter(cmd)
		ctx := cmd.Context()
		if _, err := client.load(ctx); err != nil {
			return p.fail(err)
		}
		l, err := client.listings.UpdateListing(ctx, args[0], buildPatch(cmd, updateFields))
		if err := p.saved(err); err != nil {
			return p.fail(err)
		}
		return p.done(l, func(w io.Writer) {
			fmt.Fprintln(w, successLine("Updated %s", accent.Render(l.ID)))
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <id> <status>",
	Short: "Move a listing to another status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := newPrinter(cmd)
		ctx := cmd.Context()
		if _, err := client.load(ctx); err != nil {
			return p.fail(err)
		}
		l, err := client.listings.SetStatus(ctx, args[0], domain.ListingStatus(strings.ToLower(args[1])))
		if err := p.saved(err); err != nil {
			return p.fail(err)
		}
		return p.done(l, func(w io.Writer) {
			fmt.Fprintln(w, successLine("%s is now %s", l.ID, accent.Render(string(l.Status))))
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a listing and its images",
	Long: `Delete a listing. Its stored images are removed once the collection
without it has been saved; if that save fails the images are kept.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := newPrinter(cmd)
		ctx := cmd.Context()
		if _, err := client.load(ctx); err != nil {
			return p.fail(err)
		}
		err := client.listings.DeleteListing(ctx, args[0])
		if err := p.saved(err); err != nil {
			return p.fail(err)
		}
		return p.done(map[string]string{"deleted": args[0]}, func(w io.Writer) {
			fmt.Fprintln(w, successLine("Deleted %s", args[0]))
		})
	},
}

// buildPatch turns the flags the user actually set into a patch.
func buildPatch(cmd *cobra.Command, f listingFields) usecase.ListingPatch {
	changed := cmd.Flags().Changed
	var patch usecase.ListingPatch
	if changed("title") {
		patch.Title = &f.title
	}
	if changed("street") {
		patch.Street = &f.street
	}
	if changed("city") {
		patch.City = &f.city
	}
	if changed("price") {
		patch.Price = &f.price
	}
	if changed("rooms") {
		patch.Rooms = &f.rooms
	}
	if changed("phone") {
		patch.Phone = &f.phone
	}
	if changed("link") {
		patch.Link = &f.link
	}
	if changed("status") {
		s := domain.ListingStatus(f.status)
		patch.Status = &s
	}
	if changed("floor") {
		patch.Floor = &f.floor
	}
	if changed("rating") {
		patch.Rating = &f.rating
	}
	if changed("notes") {
		patch.Notes = &f.notes
	}
	if changed("remind") {
		patch.Reminder = &domain.Reminder{Date: f.remind, Note: f.remindNote}
	}
	if changed("entry-month") {
		patch.EntryMonth = &f.entryMonth
	}
	if changed("amenity") {
		patch.Amenities = amenitySet(f.amenities)
	}
	return patch
}

func amenitySet(names []string) map[string]bool {
	if len(names) == 0 {
		return nil
	}
	out := make(map[string]bool, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out[n] = true
		}
	}
	return out
}

func init() {
	registerListingFlags(addCmd, &addFields)
	addCmd.Flags().StringSliceVar(&addImages, "image", nil, "Image file to attach, repeatable")
	registerListingFlags(updateCmd, &updateFields)

	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(deleteCmd)
}
