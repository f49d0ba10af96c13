package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gatherer/internal/client/filters"
	"github.com/dmitrijs2005/gatherer/internal/client/models"
	"github.com/dmitrijs2005/gatherer/internal/common"
)

const filterUsage = "usage: filter [show] | edit | options <level> | set <level> <code,...> | apply | cancel | clear"

// Filter drives the location filter. Edits happen in a session seeded with
// the applied filter and are saved only by "filter apply".
func (a *App) Filter(ctx context.Context, args []string) error {
	sub := "show"
	if len(args) > 0 {
		sub, args = args[0], args[1:]
	}

	switch sub {
	case "show":
		if a.editor != nil {
			fmt.Fprintln(a.out, "Editing (not applied):")
			a.printSelection(a.editor.Selection())
			return nil
		}
		sel, err := a.filterService.Load(ctx)
		if err != nil {
			return err
		}
		a.printSelection(sel)
		return nil

	case "edit":
		editor, err := a.filterService.Edit(ctx)
		if err != nil {
			return err
		}
		a.editor = editor
		a.printSelection(editor.Selection())
		return nil

	case "options":
		if len(args) != 1 {
			return errors.New(filterUsage)
		}
		level, err := models.ParseLevel(args[0])
		if err != nil {
			return err
		}
		editor, err := a.ensureEditor(ctx)
		if err != nil {
			return err
		}
		if err := editor.Refresh(ctx, level); err != nil {
			var stale *filters.StaleDataWarning
			if !errors.As(err, &stale) {
				return err
			}
			fmt.Fprintln(a.out, "Warning:", stale.Error())
		}
		a.printOptions(editor.Options(level), editor.Selection().Get(level))
		return nil

	case "set":
		if len(args) < 1 {
			return errors.New(filterUsage)
		}
		level, err := models.ParseLevel(args[0])
		if err != nil {
			return err
		}
		codes, err := parseCodes(args[1:])
		if err != nil {
			return err
		}
		editor, err := a.ensureEditor(ctx)
		if err != nil {
			return err
		}
		a.printSelection(editor.Set(level, codes))
		return nil

	case "apply":
		if a.editor == nil {
			return errors.New("no filter is being edited")
		}
		if err := a.filterService.Apply(ctx, a.editor.Selection()); err != nil {
			return err
		}
		a.editor = nil
		fmt.Fprintln(a.out, "Filter applied")
		return nil

	case "cancel":
		a.editor = nil
		return nil

	case "clear":
		if err := a.filterService.Clear(ctx); err != nil && !errors.Is(err, common.ErrorNotFound) {
			return err
		}
		a.editor = nil
		fmt.Fprintln(a.out, "Filter cleared")
		return nil
	}

	return errors.New(filterUsage)
}

func (a *App) ensureEditor(ctx context.Context) (*filters.Resolver, error) {
	if a.editor != nil {
		return a.editor, nil
	}
	editor, err := a.filterService.Edit(ctx)
	if err != nil {
		return nil, err
	}
	a.editor = editor
	return editor, nil
}

// parseCodes accepts codes separated by commas, spaces or both. No codes
// clears the level.
func parseCodes(args []string) ([]int64, error) {
	fields := strings.FieldsFunc(strings.Join(args, ","), func(r rune) bool { return r == ',' || r == ' ' })
	codes := make([]int64, 0, len(fields))
	for _, f := range fields {
		c, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid code %q", f)
		}
		codes = append(codes, c)
	}
	return codes, nil
}

func (a *App) printSelection(sel models.Selection) {
	if sel.IsEmpty() {
		fmt.Fprintln(a.out, "No filter")
		return
	}
	for _, l := range models.Levels {
		codes := sel.Get(l)
		if len(codes) == 0 {
			continue
		}
		s := make([]string, len(codes))
		for i, c := range codes {
			s[i] = strconv.FormatInt(c, 10)
		}
		fmt.Fprintf(a.out, "%-8s %s\n", l+":", strings.Join(s, ","))
	}
}

func (a *App) printOptions(opts []models.LocationCode, selected []int64) {
	if len(opts) == 0 {
		fmt.Fprintln(a.out, "No options")
		return
	}
	chosen := make(map[int64]bool, len(selected))
	for _, c := range selected {
		chosen[c] = true
	}
	for _, o := range opts {
		mark := " "
		if chosen[o.Code] {
			mark = "*"
		}
		fmt.Fprintf(a.out, "%s %d\t%s\n", mark, o.Code, o.Name)
	}
}
