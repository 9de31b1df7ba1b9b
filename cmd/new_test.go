package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/cardscan/internal/models"
	"github.com/lehigh-university-libraries/cardscan/internal/session"
)

func TestReviewFields(t *testing.T) {
	sess := session.New()
	if err := sess.SetFields(models.CardFields{Name: "Mickey Mantle", CardNumber: "311", TeamName: "Yankees"}); err != nil {
		t.Fatal(err)
	}

	// keep name, change number, set series, leave the rest at EOF
	in := strings.NewReader("\n253\n1952 Topps\n")
	var out bytes.Buffer
	if err := reviewFields(sess, in, &out); err != nil {
		t.Fatalf("reviewFields: %v", err)
	}

	want := models.CardFields{Name: "Mickey Mantle", CardNumber: "253", CardSeries: "1952 Topps", TeamName: "Yankees"}
	if got := sess.Fields(); got != want {
		t.Errorf("fields = %+v, want %+v", got, want)
	}
	if !strings.Contains(out.String(), "Name [Mickey Mantle]") {
		t.Errorf("prompt missing current value: %q", out.String())
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name   string
		fields models.CardFields
		want   string
	}{
		{"empty", models.CardFields{}, "(no details found)"},
		{"number last", models.CardFields{Name: "Babe Ruth", CardNumber: "53", TeamName: "Yankees"}, "Babe Ruth, Yankees, #53"},
		{"series only", models.CardFields{CardSeries: "1933 Goudey"}, "1933 Goudey"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := describe(tt.fields); got != tt.want {
				t.Errorf("describe() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrintOutput(t *testing.T) {
	v := models.CardFields{Name: "Hank Aaron", CardNumber: "128"}

	tests := []struct {
		format  string
		want    string
		wantErr bool
	}{
		{format: "json", want: `"card_number": "128"`},
		{format: "yaml", want: "card_number: \"128\""},
		{format: "xml", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			err := printOutput(&buf, tt.format, v)
			if (err != nil) != tt.wantErr {
				t.Fatalf("printOutput() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output %q does not contain %q", buf.String(), tt.want)
			}
		})
	}
}
