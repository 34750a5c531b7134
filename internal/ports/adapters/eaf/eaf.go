// Package eaf converts ELAN annotation files. Each independent tier is a
// speaker; dependent tiers named "<code>@<speaker>" annotate the speaker's
// utterances with vocal maturity, lexicality, multi-word and addressee codes.
package eaf

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/forPelevin/annoset/internal/ports"
	"github.com/forPelevin/annoset/internal/types"
)

var columns = []string{"speaker_id", "speaker_type", "vcm_type", "lex_type", "mwu_type", "addressee", "transcription"}

var dependentColumns = map[string]string{
	"vcm": "vcm_type",
	"lex": "lex_type",
	"mwu": "mwu_type",
	"xds": "addressee",
}

type Adapter struct{}

func New() *Adapter { return &Adapter{} }

var _ ports.Converter = (*Adapter)(nil)

func (a *Adapter) ThreadSafe() bool { return true }

func (a *Adapter) Convert(ctx context.Context, path, _ string) (types.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.Table{}, err
	}
	defer f.Close()

	doc, err := xmlquery.Parse(f)
	if err != nil {
		return types.Table{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	slots := map[string]int64{}
	for _, n := range xmlquery.Find(doc, "//TIME_ORDER/TIME_SLOT") {
		v := n.SelectAttr("TIME_VALUE")
		if v == "" {
			continue
		}
		ms, err := types.ParseMS(v)
		if err != nil {
			return types.Table{}, fmt.Errorf("time slot %s: %w", n.SelectAttr("TIME_SLOT_ID"), err)
		}
		slots[n.SelectAttr("TIME_SLOT_ID")] = ms
	}

	t := types.Table{Columns: columns}
	byID := map[string]int{}
	tiers := xmlquery.Find(doc, "//TIER")
	for _, tier := range tiers {
		if tier.SelectAttr("PARENT_REF") != "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return types.Table{}, err
		}
		tierID := tier.SelectAttr("TIER_ID")
		for _, ann := range xmlquery.Find(tier, "./ANNOTATION/ALIGNABLE_ANNOTATION") {
			onset, ok1 := slots[ann.SelectAttr("TIME_SLOT_REF1")]
			offset, ok2 := slots[ann.SelectAttr("TIME_SLOT_REF2")]
			if !ok1 || !ok2 {
				continue
			}
			seg := types.Segment{
				Onset:  onset,
				Offset: offset,
				Attrs: map[string]string{
					"speaker_id":    tierID,
					"speaker_type":  speakerType(tierID),
					"transcription": annotationValue(ann),
				},
			}
			byID[ann.SelectAttr("ANNOTATION_ID")] = len(t.Segments)
			t.Segments = append(t.Segments, seg)
		}
	}

	for _, tier := range tiers {
		if tier.SelectAttr("PARENT_REF") == "" {
			continue
		}
		code, _, _ := strings.Cut(tier.SelectAttr("TIER_ID"), "@")
		col, ok := dependentColumns[code]
		if !ok {
			continue
		}
		for _, ann := range xmlquery.Find(tier, "./ANNOTATION/REF_ANNOTATION") {
			i, ok := byID[ann.SelectAttr("ANNOTATION_REF")]
			if !ok {
				continue
			}
			t.Segments[i].Attrs[col] = annotationValue(ann)
		}
	}
	return t, nil
}

func annotationValue(ann *xmlquery.Node) string {
	if v := xmlquery.FindOne(ann, "./ANNOTATION_VALUE"); v != nil {
		return strings.TrimSpace(v.InnerText())
	}
	return ""
}

func speakerType(tierID string) string {
	switch {
	case tierID == "CHI":
		return "CHI"
	case strings.HasPrefix(tierID, "FA"):
		return "FEM"
	case strings.HasPrefix(tierID, "MA"):
		return "MAL"
	case strings.HasPrefix(tierID, "UC"):
		return "OCH"
	case strings.HasPrefix(tierID, "EE"):
		return "ELE"
	}
	return types.NA
}
