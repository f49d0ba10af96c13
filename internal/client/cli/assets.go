package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"text/tabwriter"

	"github.com/dmitrijs2005/gatherer/internal/client/assets"
	"github.com/dmitrijs2005/gatherer/internal/client/models"
	"github.com/dmitrijs2005/gatherer/internal/common"
	"github.com/dmitrijs2005/gatherer/internal/hashx"
)

// Resolve materializes one asset and prints its local file URI.
//
//	resolve <id> <url> <hash>
func (a *App) Resolve(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return errors.New("usage: resolve <id> <url> <hash>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid asset id %q", args[0])
	}

	uri, err := a.cache.Resolve(ctx, models.RemoteAsset{ID: id, URL: args[1], Hash: args[2]})
	if err != nil {
		return describeAssetError(err)
	}

	fmt.Fprintln(a.out, uri)
	return nil
}

// Upload sends captured files to object storage and prints the URL and
// hash each field should store. Pairs come from the arguments or, when
// none are given, from the prompt.
//
//	upload photo=/sdcard/DCIM/1.jpg aadhaar=/sdcard/doc.pdf
func (a *App) Upload(ctx context.Context, args []string) error {
	var (
		pairs []FilePair
		err   error
	)
	if len(args) > 0 {
		pairs, err = ParseFilePairs(args)
	} else {
		pairs, err = ReadFilePairs(a.reader, a.out)
	}
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		return nil
	}

	files := make(map[string]*models.LocalFile, len(pairs))
	for _, p := range pairs {
		lf, err := models.NewLocalFile(p.Path, a.hasher)
		if err != nil {
			return err
		}
		files[p.Field] = lf
	}

	uploaded, err := a.cache.Upload(ctx, files)
	if err != nil {
		return describeAssetError(err)
	}

	keys := make([]string, 0, len(uploaded))
	for k := range uploaded {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, k := range keys {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", k, uploaded[k].URL, uploaded[k].Hash)
	}
	return tw.Flush()
}

// describeAssetError turns cache failures into messages for field staff.
func describeAssetError(err error) error {
	var ve *assets.ValidationError
	switch {
	case errors.As(err, &ve):
		return errors.New(ve.Message)
	case errors.Is(err, hashx.ErrUnsupported):
		return fmt.Errorf("the recorded hash cannot be checked: %w", err)
	case errors.Is(err, common.ErrIntegrity):
		return fmt.Errorf("file is corrupted, try again: %w", err)
	case errors.Is(err, common.ErrUnsupportedURL):
		return fmt.Errorf("unsupported file location: %w", err)
	case errors.Is(err, common.ErrTransport):
		return fmt.Errorf("network problem, try again later: %w", err)
	}
	return err
}

// Cache lists or removes local cache entries.
//
//	cache [list]
//	cache rm <id>
func (a *App) Cache(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "list" {
		entries, err := a.cache.Entries(ctx)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(a.out, "Cache is empty")
			return nil
		}
		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tPATH\tCACHED")
		for _, e := range entries {
			fmt.Fprintf(tw, "%d\t%s\t%s\n", e.AssetID, e.LocalPath, e.CreatedAt.Local().Format("2006-01-02 15:04"))
		}
		return tw.Flush()
	}

	if args[0] == "rm" && len(args) == 2 {
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid asset id %q", args[1])
		}
		if err := a.cache.Remove(ctx, id); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return fmt.Errorf("asset %d is not cached", id)
			}
			return err
		}
		fmt.Fprintln(a.out, "Removed", id)
		return nil
	}

	return errors.New("usage: cache [list] | cache rm <id>")
}
