package query

import "testing"

func TestDetectEmergencyPositive(t *testing.T) {
	tests := []struct {
		name    string
		q       Query
		trigger string
	}{
		{
			name:    "chest pain with shortness of breath",
			q:       Query{Text: "I'm having severe chest pain and shortness of breath"},
			trigger: "chest pain",
		},
		{
			name:    "suicidal ideation",
			q:       Query{Text: "I feel suicidal and don't know what to do"},
			trigger: "suicidal",
		},
		{
			name:    "overdose mention",
			q:       Query{Text: "my friend took an overdose of sleeping pills"},
			trigger: "overdose",
		},
		{
			name:    "breathing difficulty with apostrophe",
			q:       Query{Text: "I can't breathe properly since this morning"},
			trigger: "can't breathe",
		},
		{
			name:    "emergency entity without matching text",
			q:       Query{Text: "what should I do now", Entities: Entities{Conditions: []string{"Anaphylaxis"}}},
			trigger: "anaphylaxis",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectEmergency(tt.q)
			if !got.Detected {
				t.Fatalf("expected emergency to be detected")
			}
			if got.Trigger != tt.trigger {
				t.Errorf("expected trigger %q, got %q", tt.trigger, got.Trigger)
			}
		})
	}
}

func TestDetectEmergencyNegative(t *testing.T) {
	queries := []string{
		"Can I take aspirin with warfarin?",
		"What are the side effects of metformin?",
		"How do I manage my diabetes?",
		"I have a mild headache since yesterday",
	}

	for _, text := range queries {
		got := DetectEmergency(Query{Text: text})
		if got.Detected {
			t.Errorf("query %q should not be flagged, trigger=%q", text, got.Trigger)
		}
	}
}

func TestDetectEmergencyDeterministic(t *testing.T) {
	q := Query{Text: "severe chest pain right now"}
	first := DetectEmergency(q)
	for i := 0; i < 5; i++ {
		if got := DetectEmergency(q); got != first {
			t.Fatalf("detector must be deterministic: %+v != %+v", got, first)
		}
	}
}
