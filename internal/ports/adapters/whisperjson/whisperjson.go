// Package whisperjson converts speech-recognition transcripts written as
// JSON, either by openai-whisper ("segments" in seconds) or by whisper.cpp
// with -oj ("transcription" with millisecond offsets).
package whisperjson

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/forPelevin/annoset/internal/ports"
	"github.com/forPelevin/annoset/internal/types"
)

var columns = []string{"transcription", "words"}

type transcript struct {
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
		Words []struct {
			Word string `json:"word"`
		} `json:"words"`
	} `json:"segments"`
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

type Adapter struct{}

func New() *Adapter { return &Adapter{} }

var _ ports.Converter = (*Adapter)(nil)

func (a *Adapter) ThreadSafe() bool { return true }

func (a *Adapter) Convert(_ context.Context, path, _ string) (types.Table, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return types.Table{}, err
	}
	var tr transcript
	if err := json.Unmarshal(b, &tr); err != nil {
		return types.Table{}, fmt.Errorf("decoding %s: %w", path, err)
	}

	t := types.Table{Columns: columns}
	for _, s := range tr.Segments {
		words := make([]string, 0, len(s.Words))
		for _, w := range s.Words {
			if w := strings.TrimSpace(w.Word); w != "" {
				words = append(words, w)
			}
		}
		text := strings.TrimSpace(s.Text)
		if len(words) == 0 {
			words = strings.Fields(text)
		}
		t.Segments = append(t.Segments, segment(
			int64(math.Round(s.Start*1000)),
			int64(math.Round(s.End*1000)),
			text, len(words),
		))
	}
	for _, s := range tr.Transcription {
		text := strings.TrimSpace(s.Text)
		t.Segments = append(t.Segments, segment(s.Offsets.From, s.Offsets.To, text, len(strings.Fields(text))))
	}
	return t, nil
}

func segment(onset, offset int64, text string, words int) types.Segment {
	return types.Segment{
		Onset:  onset,
		Offset: offset,
		Attrs: map[string]string{
			"transcription": text,
			"words":         strconv.Itoa(words),
		},
	}
}
