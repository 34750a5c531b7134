// Package rttm converts RTTM output of voice type and vocal maturity
// classifiers into segment tables.
package rttm

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/forPelevin/annoset/internal/ports"
	"github.com/forPelevin/annoset/internal/types"
)

// Flavor selects how the label column of an RTTM line is interpreted.
type Flavor int

const (
	// VTC labels are voice types (KCHI, CHI, FEM, MAL, SPEECH).
	VTC Flavor = iota
	// VCM labels are vocal maturity classes of child speech plus adult voice types.
	VCM
)

var vtcSpeakerTypes = map[string]string{
	"KCHI":   "CHI",
	"CHI":    "OCH",
	"MAL":    "MAL",
	"FEM":    "FEM",
	"SPEECH": "SPEECH",
}

var vcmSpeakerTypes = map[string]string{
	"CHI": "OCH",
	"CRY": "CHI",
	"FEM": "FEM",
	"MAL": "MAL",
	"NCS": "CHI",
	"CNS": "CHI",
}

var vcmTypes = map[string]string{
	"CRY": "Y",
	"NCS": "N",
	"CNS": "C",
	"OTH": "J",
}

type Adapter struct {
	flavor Flavor
}

func New(flavor Flavor) *Adapter { return &Adapter{flavor: flavor} }

var _ ports.Converter = (*Adapter)(nil)

func (a *Adapter) ThreadSafe() bool { return true }

// Convert reads SPEAKER lines. When filter is set, only lines whose file
// field equals it are kept.
func (a *Adapter) Convert(ctx context.Context, path, filter string) (types.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.Table{}, err
	}
	defer f.Close()

	t := types.Table{Columns: []string{"speaker_type"}}
	if a.flavor == VCM {
		t.Columns = append(t.Columns, "vcm_type")
	}

	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return types.Table{}, err
		}
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 8 {
			return types.Table{}, fmt.Errorf("%s:%d: expected at least 8 fields, got %d", path, line, len(fields))
		}
		if filter != "" && fields[1] != filter {
			continue
		}
		onset, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return types.Table{}, fmt.Errorf("%s:%d: onset: %w", path, line, err)
		}
		dur, err := strconv.ParseFloat(fields[4], 64)
		if err != nil {
			return types.Table{}, fmt.Errorf("%s:%d: duration: %w", path, line, err)
		}
		label := fields[7]
		seg := types.Segment{
			Onset:  int64(math.Round(onset * 1000)),
			Offset: int64(math.Round((onset + dur) * 1000)),
			Attrs:  map[string]string{},
		}
		switch a.flavor {
		case VTC:
			seg.Attrs["speaker_type"] = lookup(vtcSpeakerTypes, label)
		case VCM:
			seg.Attrs["speaker_type"] = lookup(vcmSpeakerTypes, label)
			seg.Attrs["vcm_type"] = lookup(vcmTypes, label)
		}
		t.Segments = append(t.Segments, seg)
	}
	if err := sc.Err(); err != nil {
		return types.Table{}, err
	}
	return t, nil
}

func lookup(m map[string]string, k string) string {
	if v, ok := m[k]; ok {
		return v
	}
	return types.NA
}
