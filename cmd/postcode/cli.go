package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/couchcryptid/postcode-distance-service/internal/domain"
)

var (
	errUsage      = errors.New("usage")
	errNotFound   = errors.New("postcode not found")
	errUnresolved = errors.New("postcodes could not be resolved")
)

const usage = `usage: postcode <command> [flags] [args]

commands:
  normalize <postcode>...          print the canonical form of each postcode
  lookup <postcode>                resolve a postcode to coordinates
  bulk <postcode>...               resolve up to 100 postcodes in one request
  distance [-unit km|miles] <from> <to>
                                   distance between two postcodes
`

type cli struct {
	service     *domain.DistanceService
	defaultUnit domain.Unit
	stdout      io.Writer
	stderr      io.Writer
}

func (c *cli) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(c.stderr, usage)
		return errUsage
	}

	switch cmd, rest := args[0], args[1:]; cmd {
	case "normalize":
		return c.normalize(rest)
	case "lookup":
		return c.lookup(ctx, rest)
	case "bulk":
		return c.bulk(ctx, rest)
	case "distance":
		return c.distance(ctx, rest)
	case "help", "-h", "--help":
		fmt.Fprint(c.stdout, usage)
		return nil
	default:
		fmt.Fprintf(c.stderr, "unknown command %q\n\n%s", cmd, usage)
		return errUsage
	}
}

func (c *cli) normalize(args []string) error {
	if len(args) == 0 {
		fmt.Fprint(c.stderr, usage)
		return errUsage
	}
	out := make(map[string]string, len(args))
	for _, raw := range args {
		pc, err := domain.NormalizePostcode(raw)
		if err != nil {
			return err
		}
		out[raw] = pc
	}
	return c.print(out)
}

func (c *cli) lookup(ctx context.Context, args []string) error {
	if len(args) != 1 {
		fmt.Fprint(c.stderr, usage)
		return errUsage
	}
	result, err := c.service.Lookup(ctx, args[0])
	if err != nil {
		return err
	}
	if err := c.print(result); err != nil {
		return err
	}
	if !result.Found {
		return errNotFound
	}
	return nil
}

func (c *cli) bulk(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(c.stderr, usage)
		return errUsage
	}
	results, err := c.service.BulkLookup(ctx, args)
	if err != nil {
		return err
	}
	return c.print(results)
}

func (c *cli) distance(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("distance", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	unitFlag := fs.String("unit", string(c.defaultUnit), "distance unit (km or miles)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 2 {
		fmt.Fprint(c.stderr, usage)
		return errUsage
	}
	unit, err := domain.ParseUnit(*unitFlag)
	if err != nil {
		return err
	}

	result, err := c.service.PostcodeDistance(ctx, fs.Arg(0), fs.Arg(1), unit)
	if err != nil {
		return err
	}
	if err := c.print(result); err != nil {
		return err
	}
	if !result.Resolved {
		return errUnresolved
	}
	return nil
}

func (c *cli) print(v any) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// exitCode distinguishes bad input (2) and missing postcodes (3) from
// failures talking to postcodes.io (1).
func exitCode(err error) int {
	switch {
	case errors.Is(err, errUsage),
		errors.Is(err, domain.ErrInvalidFormat),
		errors.Is(err, domain.ErrInvalidUnit),
		errors.Is(err, domain.ErrBatchTooLarge):
		return 2
	case errors.Is(err, errNotFound), errors.Is(err, errUnresolved):
		return 3
	default:
		return 1
	}
}
