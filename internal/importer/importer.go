// Package importer loads inventory feeds (CSV with a heading row) into the truck catalog.
// Rows are matched to existing trucks by VIN, then stock number. A matched truck
// only takes the columns present in the feed; everything else is created.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/NickCamacho15/bbb-truck-sales-sub000/internal/models"
	"github.com/NickCamacho15/bbb-truck-sales-sub000/internal/services"
)

// listSep separates multiple images or features inside one CSV cell.
const listSep = "|"

var moneyNoise = strings.NewReplacer("$", "", ",", "", " ", "")

// Record is one parsed feed row. Line is the 1-based line in the source file.
// Input is the row as a new truck; matched trucks are updated from cells.
type Record struct {
	Line  int
	Input services.TruckInput
	cells []cell
}

type cell struct {
	set   setter
	value string
}

// mergeInto overlays the row's own cells on the stored state of t.
func (rec Record) mergeInto(t *models.Truck) (services.TruckInput, error) {
	in := services.InputFromTruck(t)
	for _, c := range rec.cells {
		if err := c.set(&in, c.value); err != nil {
			return in, err
		}
	}
	return in, nil
}

// RowError ties a failure to its source line.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }

func (e RowError) Unwrap() error { return e.Err }

// Result summarises an import run.
type Result struct {
	Created int
	Updated int
	Errors  []RowError
}

// Parse reads a feed. Unknown headings are an error, as are malformed values;
// the latter are reported per row and do not stop parsing.
func Parse(r io.Reader) ([]Record, []RowError, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	headings, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("reading csv headings: %w", err)
	}
	setters := make([]setter, len(headings))
	for i, h := range headings {
		s, ok := columns[normalizeHeading(h)]
		if !ok {
			return nil, nil, fmt.Errorf("unknown heading %q in column %d", h, i+1)
		}
		setters[i] = s
	}

	var records []Record
	var rowErrs []RowError
	for {
		values, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			line := 0
			if errors.As(err, &pe) {
				line = pe.Line
			}
			rowErrs = append(rowErrs, RowError{Line: line, Err: err})
			continue
		}
		line, _ := cr.FieldPos(0)
		rec := Record{Line: line, Input: services.TruckInput{ListingType: models.ListingSale}}
		var rowErr error
		for i, v := range values {
			if v = strings.TrimSpace(v); v == "" {
				continue
			}
			if err := setters[i](&rec.Input, v); err != nil {
				rowErr = fmt.Errorf("%s: %w", headings[i], err)
				break
			}
			rec.cells = append(rec.cells, cell{set: setters[i], value: v})
		}
		if rowErr != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Err: rowErr})
			continue
		}
		records = append(records, rec)
	}
	return records, rowErrs, nil
}

// Importer writes parsed records through the truck service so every
// catalog rule applies to imported rows too.
type Importer struct {
	Trucks *services.TruckService
	DryRun bool
}

func New(trucks *services.TruckService) *Importer {
	return &Importer{Trucks: trucks}
}

// Import upserts records. Per-row failures are collected; only context
// cancellation aborts the run.
func (im *Importer) Import(ctx context.Context, records []Record) (Result, error) {
	var res Result
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		existing, err := im.Trucks.FindByKey(ctx, rec.Input.VIN, rec.Input.StockNumber)
		switch {
		case errors.Is(err, services.ErrNotFound):
			if err := im.create(ctx, rec.Input); err != nil {
				res.Errors = append(res.Errors, RowError{Line: rec.Line, Err: err})
				continue
			}
			res.Created++
		case err != nil:
			res.Errors = append(res.Errors, RowError{Line: rec.Line, Err: err})
		default:
			in, err := rec.mergeInto(existing)
			if err == nil {
				err = im.update(ctx, existing.ID, in)
			}
			if err != nil {
				res.Errors = append(res.Errors, RowError{Line: rec.Line, Err: err})
				continue
			}
			res.Updated++
		}
	}
	log.WithFields(log.Fields{
		"created": res.Created,
		"updated": res.Updated,
		"errors":  len(res.Errors),
		"dry_run": im.DryRun,
	}).Info("Inventory import finished")
	return res, nil
}

func (im *Importer) create(ctx context.Context, in services.TruckInput) error {
	if im.DryRun {
		return check(in)
	}
	_, err := im.Trucks.Create(ctx, in)
	return err
}

func (im *Importer) update(ctx context.Context, id string, in services.TruckInput) error {
	if im.DryRun {
		return check(in)
	}
	_, err := im.Trucks.Update(ctx, id, in)
	return err
}

// check runs the write-path validation without touching the database.
func check(in services.TruckInput) error {
	in.Normalize()
	return in.Validate().Err()
}

type setter func(in *services.TruckInput, v string) error

func normalizeHeading(h string) string {
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.ToLower(strings.TrimSpace(h)))
}

func parseInt(v string) (int, error) {
	return strconv.Atoi(strings.ReplaceAll(v, ",", ""))
}

// parseMoney accepts values like "$42,500.00". Negative amounts are rejected.
func parseMoney(v string) (float64, error) {
	f, err := strconv.ParseFloat(moneyNoise.Replace(v), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid amount %q", v)
	}
	if f < 0 {
		return 0, fmt.Errorf("negative amount %q", v)
	}
	return f, nil
}

func splitCell(v string) []string {
	var out []string
	for _, part := range strings.Split(v, listSep) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func str(field func(*services.TruckInput) *string) setter {
	return func(in *services.TruckInput, v string) error {
		*field(in) = v
		return nil
	}
}

func integer(field func(*services.TruckInput) *int) setter {
	return func(in *services.TruckInput, v string) error {
		n, err := parseInt(v)
		if err != nil {
			return err
		}
		*field(in) = n
		return nil
	}
}

func money(field func(*services.TruckInput) **float64) setter {
	return func(in *services.TruckInput, v string) error {
		f, err := parseMoney(v)
		if err != nil {
			return err
		}
		*field(in) = &f
		return nil
	}
}

var columns = map[string]setter{
	"title":        str(func(in *services.TruckInput) *string { return &in.Title }),
	"make":         str(func(in *services.TruckInput) *string { return &in.Make }),
	"model":        str(func(in *services.TruckInput) *string { return &in.Model }),
	"trim":         str(func(in *services.TruckInput) *string { return &in.Trim }),
	"fueltype":     str(func(in *services.TruckInput) *string { return &in.FuelType }),
	"fuel":         str(func(in *services.TruckInput) *string { return &in.FuelType }),
	"transmission": str(func(in *services.TruckInput) *string { return &in.Transmission }),
	"drivetrain":   str(func(in *services.TruckInput) *string { return &in.Drivetrain }),
	"color":        str(func(in *services.TruckInput) *string { return &in.Color }),
	"extcolor":     str(func(in *services.TruckInput) *string { return &in.Color }),
	"vin":          str(func(in *services.TruckInput) *string { return &in.VIN }),
	"stock":        str(func(in *services.TruckInput) *string { return &in.StockNumber }),
	"stocknumber":  str(func(in *services.TruckInput) *string { return &in.StockNumber }),
	"description":  str(func(in *services.TruckInput) *string { return &in.Description }),
	"year":         integer(func(in *services.TruckInput) *int { return &in.Year }),
	"mileage":      integer(func(in *services.TruckInput) *int { return &in.Mileage }),
	"odometer":     integer(func(in *services.TruckInput) *int { return &in.Mileage }),
	"monthlyprice": money(func(in *services.TruckInput) **float64 { return &in.MonthlyPrice }),
	"downpayment":  money(func(in *services.TruckInput) **float64 { return &in.DownPayment }),
	"price": func(in *services.TruckInput, v string) error {
		f, err := parseMoney(v)
		in.Price = f
		return err
	},
	"leasetermmonths": func(in *services.TruckInput, v string) error {
		n, err := parseInt(v)
		if err != nil {
			return err
		}
		in.LeaseTermMonths = &n
		return nil
	},
	"listingtype": func(in *services.TruckInput, v string) error {
		lt := models.ListingType(strings.ToUpper(v))
		if !lt.Valid() {
			return fmt.Errorf("invalid listing type %q", v)
		}
		in.ListingType = lt
		return nil
	},
	"status": func(in *services.TruckInput, v string) error {
		st := models.TruckStatus(strings.ToUpper(strings.ReplaceAll(v, " ", "_")))
		if !st.Valid() {
			return fmt.Errorf("invalid status %q", v)
		}
		in.Status = st
		return nil
	},
	"featured": func(in *services.TruckInput, v string) error {
		b, err := strconv.ParseBool(v)
		in.Featured = b
		return err
	},
	"images": func(in *services.TruckInput, v string) error {
		in.Images = splitCell(v)
		return nil
	},
	"features": func(in *services.TruckInput, v string) error {
		in.Features = splitCell(v)
		return nil
	},
}
