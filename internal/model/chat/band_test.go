package chat

import "testing"

func TestBandForBoundaries(t *testing.T) {
	cases := []struct {
		confidence int
		want       Band
	}{
		{confidence: 100, want: BandPositive},
		{confidence: 80, want: BandPositive},
		{confidence: 79, want: BandNeutral},
		{confidence: 60, want: BandNeutral},
		{confidence: 59, want: BandNegative},
		{confidence: 0, want: BandNegative},
	}

	for _, tc := range cases {
		if got := BandFor(tc.confidence); got != tc.want {
			t.Fatalf("BandFor(%d) = %s, want %s", tc.confidence, got, tc.want)
		}
	}
}

func TestClampConfidence(t *testing.T) {
	if got := ClampConfidence(-5); got != 0 {
		t.Fatalf("ClampConfidence(-5) = %d", got)
	}
	if got := ClampConfidence(140); got != 100 {
		t.Fatalf("ClampConfidence(140) = %d", got)
	}
	if got := ClampConfidence(72); got != 72 {
		t.Fatalf("ClampConfidence(72) = %d", got)
	}
}

func TestModalityFor(t *testing.T) {
	if ModalityFor("hi") != ModalityText {
		t.Fatal("typed text should be text modality")
	}
	if ModalityFor("") != ModalityVoice {
		t.Fatal("missing text should be voice modality")
	}
}

func TestNewSessionIDShape(t *testing.T) {
	a, b := NewSessionID(), NewSessionID()
	if a == b {
		t.Fatalf("expected distinct ids, got %s twice", a)
	}
	if len(a) < len("session--")+sessionSuffixLen || a[:8] != "session-" {
		t.Fatalf("unexpected session id %q", a)
	}
}
