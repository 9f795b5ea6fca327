package model

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestCredits_String(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in   Credits
		want string
	}{
		{WholeCredits(20), "20"},
		{WholeCredits(20) - EnhancementCost, "19.8"},
		{EnhancementCost, "0.2"},
		{0, "0"},
		{Credits(5), "0.05"},
	}

	for _, tc := range testCases {
		if got := tc.in.String(); got != tc.want {
			t.Errorf("Credits(%d).String() = %q, want %q", int64(tc.in), got, tc.want)
		}
	}
}

func TestCredits_RepeatedEnhancementsAreExact(t *testing.T) {
	t.Parallel()

	balance := WholeCredits(20)
	for i := 0; i < 5; i++ {
		balance -= EnhancementCost
	}

	if balance != WholeCredits(19) {
		t.Fatalf("balance = %s, want 19", balance)
	}

	balance -= PromptPrice
	if balance != WholeCredits(18) {
		t.Fatalf("balance = %s, want 18", balance)
	}
}

func TestCredits_JSONRoundTrip(t *testing.T) {
	t.Parallel()

	payload := struct {
		Credits Credits `json:"credits"`
	}{Credits: CreditsFromFloat(19.8)}

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"credits":19.8}` {
		t.Fatalf("marshal = %s", data)
	}

	var decoded struct {
		Credits Credits `json:"credits"`
	}
	if err := json.Unmarshal([]byte(`{"credits":50}`), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Credits != WholeCredits(50) {
		t.Errorf("decoded = %d, want %d", decoded.Credits, WholeCredits(50))
	}
}

func TestCredits_UnmarshalRejectsNonNumeric(t *testing.T) {
	t.Parallel()

	var c Credits
	if err := json.Unmarshal([]byte(`"fifty"`), &c); err == nil {
		t.Fatal("expected error for string credits")
	}
}

func TestMaxCredits(t *testing.T) {
	t.Parallel()

	if got := MaxCredits(WholeCredits(20), WholeCredits(50)); got != WholeCredits(50) {
		t.Errorf("MaxCredits = %s, want 50", got)
	}
	if got := MaxCredits(WholeCredits(100), WholeCredits(50)); got != WholeCredits(100) {
		t.Errorf("MaxCredits = %s, want 100", got)
	}
}

func TestParseCredits(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		in      float64
		want    Credits
		wantErr bool
	}{
		{"fraction", 0.2, EnhancementCost, false},
		{"negative", -3, -WholeCredits(3), false},
		{"at bound", MaxCreditAmount, Credits(MaxCreditAmount * 100), false},
		{"above bound", MaxCreditAmount * 10, 0, true},
		{"below negative bound", -1e30, 0, true},
		{"nan", math.NaN(), 0, true},
		{"inf", math.Inf(1), 0, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseCredits(tc.in)
			if tc.wantErr {
				if !errors.Is(err, ErrCreditsOutOfRange) {
					t.Fatalf("ParseCredits(%v) error = %v, want ErrCreditsOutOfRange", tc.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCredits(%v) error = %v", tc.in, err)
			}
			if got != tc.want {
				t.Errorf("ParseCredits(%v) = %d, want %d", tc.in, got, tc.want)
			}
		})
	}
}

func TestCredits_UnmarshalRejectsOversized(t *testing.T) {
	t.Parallel()

	var c Credits
	err := json.Unmarshal([]byte(`1e30`), &c)
	if !errors.Is(err, ErrCreditsOutOfRange) {
		t.Fatalf("Unmarshal(1e30) error = %v, want ErrCreditsOutOfRange", err)
	}
}
