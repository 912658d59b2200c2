package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestAddUpdatesSummary(t *testing.T) {
	r := New()
	if !r.Valid || r.RunID == "" {
		t.Fatalf("fresh report = %+v", r)
	}

	r.Add(Issue{Type: "missing_artifact", Severity: SeverityError, Message: "m"})
	r.Add(Issue{Type: "naming", Severity: SeverityWarning, Message: "w"})

	if r.Valid {
		t.Error("errors must invalidate the report")
	}
	if r.Summary.Errors != 1 || r.Summary.Warnings != 1 {
		t.Errorf("summary = %+v", r.Summary)
	}
}

func TestWarningsAloneStayValid(t *testing.T) {
	r := New()
	r.Add(Issue{Type: "naming", Severity: SeverityWarning, Message: "w"})
	if !r.Valid {
		t.Error("warnings alone should not invalidate")
	}
}

func TestWriteJSON(t *testing.T) {
	r := New()
	r.Add(
		Issue{Type: "extra_artifact", Severity: SeverityError, Location: "b.py", Message: "second"},
		Issue{Type: "missing_artifact", Severity: SeverityError, Location: "a.py", Message: "first"},
	)

	var buf bytes.Buffer
	if err := r.WriteJSON(&buf); err != nil {
		t.Fatal(err)
	}

	var decoded Report
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Valid || decoded.Summary.Errors != 2 {
		t.Errorf("decoded = %+v", decoded)
	}
	// Issues sort by location.
	if decoded.Issues[0].Location != "a.py" {
		t.Errorf("issue order = %v", decoded.Issues)
	}
}

func TestWriteText(t *testing.T) {
	r := New()
	r.Add(Issue{
		Type: "signature_mismatch", Severity: SeverityError, Location: "a.py:3",
		Message:  "login signature differs",
		Expected: "login(u, p)", Found: "login(u)",
		Suggestion: "align the signature",
	})

	var buf bytes.Buffer
	if err := r.WriteText(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"signature_mismatch", "a.py:3", "expected: login(u, p)", "hint:", "FAIL: 1 errors, 0 warnings"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}
