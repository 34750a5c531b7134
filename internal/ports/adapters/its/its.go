// Package its converts LENA .its files. Segments are read from every
// conversation and pause block; the filter, when set, restricts conversion
// to one recording number.
package its

import (
	"context"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/forPelevin/annoset/internal/ports"
	"github.com/forPelevin/annoset/internal/types"
)

var columns = []string{
	"speaker_type", "words", "lena_block_type", "lena_block_number",
	"lena_conv_status", "lena_response_count", "lena_conv_floor_type", "lena_conv_turn_type",
	"utterances_count", "utterances_length", "average_db", "peak_db", "child_cry_vfx_len",
}

var speakerTypes = map[string]string{
	"CHN": "CHI",
	"CXN": "OCH",
	"FAN": "FEM",
	"MAN": "MAL",
	"OLN": "OLN",
	"TVN": "TVN",
	"NON": "NON",
	"SIL": "SIL",
	"FUZ": "FUZ",
	"FAF": "FEF",
	"MAF": "MAF",
	"CHF": "CHF",
	"CXF": "CXF",
	"OLF": "OLF",
	"TVF": "TVF",
	"NOF": types.NA,
}

type Adapter struct{}

func New() *Adapter { return &Adapter{} }

var _ ports.Converter = (*Adapter)(nil)

func (a *Adapter) ThreadSafe() bool { return true }

func (a *Adapter) Convert(ctx context.Context, path, filter string) (types.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.Table{}, err
	}
	defer f.Close()

	doc, err := xmlquery.Parse(f)
	if err != nil {
		return types.Table{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	t := types.Table{Columns: columns}
	for _, rec := range xmlquery.Find(doc, "//Recording") {
		if filter != "" && rec.SelectAttr("num") != filter {
			continue
		}
		for _, block := range xmlquery.Find(rec, "./Conversation | ./Pause") {
			if err := ctx.Err(); err != nil {
				return types.Table{}, err
			}
			blockType := "pause"
			if block.Data == "Conversation" {
				blockType = block.SelectAttr("type")
			}
			for _, s := range xmlquery.Find(block, "./Segment") {
				seg, err := segment(s, blockType, block.SelectAttr("num"))
				if err != nil {
					return types.Table{}, err
				}
				t.Segments = append(t.Segments, seg)
			}
		}
	}
	return t, nil
}

func segment(s *xmlquery.Node, blockType, blockNumber string) (types.Segment, error) {
	onset, err := duration(s.SelectAttr("startTime"))
	if err != nil {
		return types.Segment{}, fmt.Errorf("segment startTime: %w", err)
	}
	offset, err := duration(s.SelectAttr("endTime"))
	if err != nil {
		return types.Segment{}, fmt.Errorf("segment endTime: %w", err)
	}

	speaker, ok := speakerTypes[s.SelectAttr("spkr")]
	if !ok {
		speaker = types.NA
	}
	attrs := map[string]string{
		"speaker_type":      speaker,
		"lena_block_type":   blockType,
		"lena_block_number": blockNumber,
		"average_db":        s.SelectAttr("average_dB"),
		"peak_db":           s.SelectAttr("peak_dB"),
		"words":             firstAttr(s, "femaleAdultWordCnt", "maleAdultWordCnt"),
		"utterances_count":  firstAttr(s, "childUttCnt", "femaleAdultUttCnt", "maleAdultUttCnt"),
	}
	if v := firstAttr(s, "childUttLen", "femaleAdultUttLen", "maleAdultUttLen"); v != "" {
		ms, err := duration(v)
		if err != nil {
			return types.Segment{}, fmt.Errorf("utterance length: %w", err)
		}
		attrs["utterances_length"] = strconv.FormatInt(ms, 10)
	}
	if v := s.SelectAttr("childCryVfxLen"); v != "" {
		ms, err := duration(v)
		if err != nil {
			return types.Segment{}, fmt.Errorf("cry length: %w", err)
		}
		attrs["child_cry_vfx_len"] = strconv.FormatInt(ms, 10)
	}

	// conversationInfo is "|status|..|..|responses|..|turn|floor|..|".
	if info := strings.Split(s.SelectAttr("conversationInfo"), "|"); len(info) > 7 {
		attrs["lena_conv_status"] = info[1]
		attrs["lena_response_count"] = info[4]
		attrs["lena_conv_turn_type"] = info[6]
		attrs["lena_conv_floor_type"] = info[7]
	}

	return types.Segment{Onset: onset, Offset: offset, Attrs: attrs}, nil
}

func firstAttr(n *xmlquery.Node, names ...string) string {
	for _, name := range names {
		if v := n.SelectAttr(name); v != "" {
			return v
		}
	}
	return ""
}

// duration parses the xs:duration subset LENA writes ("PT12.34S", "P1.20S")
// into milliseconds.
func duration(v string) (int64, error) {
	s := strings.TrimPrefix(strings.TrimPrefix(v, "P"), "T")
	if !strings.HasSuffix(s, "S") {
		return 0, fmt.Errorf("unsupported duration %q", v)
	}
	sec, err := strconv.ParseFloat(strings.TrimSuffix(s, "S"), 64)
	if err != nil {
		return 0, fmt.Errorf("unsupported duration %q", v)
	}
	return int64(math.Round(sec * 1000)), nil
}
