package eaf

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

const sample = `<?xml version="1.0" encoding="UTF-8"?>
<ANNOTATION_DOCUMENT>
  <TIME_ORDER>
    <TIME_SLOT TIME_SLOT_ID="ts1" TIME_VALUE="1000"/>
    <TIME_SLOT TIME_SLOT_ID="ts2" TIME_VALUE="2500"/>
    <TIME_SLOT TIME_SLOT_ID="ts3" TIME_VALUE="3000"/>
    <TIME_SLOT TIME_SLOT_ID="ts4" TIME_VALUE="3600"/>
    <TIME_SLOT TIME_SLOT_ID="ts5"/>
  </TIME_ORDER>
  <TIER TIER_ID="CHI" PARTICIPANT="CHI">
    <ANNOTATION>
      <ALIGNABLE_ANNOTATION ANNOTATION_ID="a1" TIME_SLOT_REF1="ts1" TIME_SLOT_REF2="ts2">
        <ANNOTATION_VALUE> baba </ANNOTATION_VALUE>
      </ALIGNABLE_ANNOTATION>
    </ANNOTATION>
    <ANNOTATION>
      <ALIGNABLE_ANNOTATION ANNOTATION_ID="a3" TIME_SLOT_REF1="ts4" TIME_SLOT_REF2="ts5">
        <ANNOTATION_VALUE>unaligned</ANNOTATION_VALUE>
      </ALIGNABLE_ANNOTATION>
    </ANNOTATION>
  </TIER>
  <TIER TIER_ID="FA1" PARTICIPANT="MOT">
    <ANNOTATION>
      <ALIGNABLE_ANNOTATION ANNOTATION_ID="a2" TIME_SLOT_REF1="ts3" TIME_SLOT_REF2="ts4">
        <ANNOTATION_VALUE>hello</ANNOTATION_VALUE>
      </ALIGNABLE_ANNOTATION>
    </ANNOTATION>
  </TIER>
  <TIER TIER_ID="vcm@CHI" PARENT_REF="CHI">
    <ANNOTATION>
      <REF_ANNOTATION ANNOTATION_ID="a10" ANNOTATION_REF="a1">
        <ANNOTATION_VALUE>C</ANNOTATION_VALUE>
      </REF_ANNOTATION>
    </ANNOTATION>
  </TIER>
  <TIER TIER_ID="xds@FA1" PARENT_REF="FA1">
    <ANNOTATION>
      <REF_ANNOTATION ANNOTATION_ID="a11" ANNOTATION_REF="a2">
        <ANNOTATION_VALUE>T</ANNOTATION_VALUE>
      </REF_ANNOTATION>
    </ANNOTATION>
  </TIER>
</ANNOTATION_DOCUMENT>
`

func TestConvert(t *testing.T) {
	p := filepath.Join(t.TempDir(), "a.eaf")
	if err := os.WriteFile(p, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}
	tbl, err := New().Convert(context.Background(), p, "")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if len(tbl.Segments) != 2 {
		t.Fatalf("expected 2 aligned segments, got %d: %+v", len(tbl.Segments), tbl.Segments)
	}
	chi := tbl.Segments[0]
	if chi.Onset != 1000 || chi.Offset != 2500 {
		t.Fatalf("unexpected CHI bounds %+v", chi)
	}
	if chi.Attr("speaker_type") != "CHI" || chi.Attr("transcription") != "baba" || chi.Attr("vcm_type") != "C" {
		t.Fatalf("unexpected CHI attributes %+v", chi.Attrs)
	}
	fa := tbl.Segments[1]
	if fa.Attr("speaker_id") != "FA1" || fa.Attr("speaker_type") != "FEM" || fa.Attr("addressee") != "T" {
		t.Fatalf("unexpected FA1 attributes %+v", fa.Attrs)
	}
}

func TestConvert_InvalidXML(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bad.eaf")
	if err := os.WriteFile(p, []byte("<ANNOTATION_DOCUMENT><TIER>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New().Convert(context.Background(), p, ""); err == nil {
		t.Fatalf("expected parse error")
	}
}
