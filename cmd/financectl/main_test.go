package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func seedDir(t *testing.T, liabilityPayment string) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"transactions.json": `[
			{"id":"t1","type":"INCOME","amount":"2000","date":"2025-01-02","status":"PAID","clientId":"c1"},
			{"id":"t2","type":"EXPENSE","amount":"300","date":"2025-01-05","status":"PAID","subType":"BUSINESS_FIXED"}
		]`,
		"liabilities.json": `[{"id":"l1","name":"Loan","monthlyPayment":"` + liabilityPayment + `","dueDate":15,"status":"UP_TO_DATE"}]`,
		"contacts.json":    `[{"id":"c1","name":"Acme","type":"CLIENT"}]`,
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestMetricsCommand(t *testing.T) {
	dir := seedDir(t, "500")

	out, err := execute(t, "metrics", "--backend", "memory", "--data-dir", dir, "--date", "2025-01-10", "--json=false")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	for _, want := range []string{"Expected cash", "1700.00", "Break-even point", "800.00", "HEALTHY"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestForecastCommandJSON(t *testing.T) {
	dir := seedDir(t, "500")

	out, err := execute(t, "forecast", "--backend", "memory", "--data-dir", dir, "--date", "2025-01-10", "--days", "7", "--json")
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	var points []struct {
		Date    string
		Balance string
	}
	if err := json.Unmarshal([]byte(out), &points); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(points) != 8 || points[7].Balance != "1200" {
		t.Errorf("unexpected forecast: %+v", points)
	}
}

func TestAnalyticsCommand(t *testing.T) {
	dir := seedDir(t, "500")

	out, err := execute(t, "analytics", "--backend", "memory", "--data-dir", dir, "--date", "2025-01-10",
		"--from", "2025-01-01", "--to", "2025-01-31", "--group-by", "month", "--json=false")
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}
	if !strings.Contains(out, "#1 Acme") || !strings.Contains(out, "2000.00") {
		t.Errorf("unexpected output:\n%s", out)
	}

	if _, err := execute(t, "analytics", "--backend", "memory", "--data-dir", dir, "--from", "January"); err == nil {
		t.Error("expected error for malformed --from")
	}
}

func TestCheckCommand(t *testing.T) {
	healthy := seedDir(t, "500")
	if _, err := execute(t, "check", "--backend", "memory", "--data-dir", healthy, "--days", "30", "--json=false"); err != nil {
		t.Errorf("healthy ledger reported at risk: %v", err)
	}

	critical := seedDir(t, "1800")
	_, err := execute(t, "check", "--backend", "memory", "--data-dir", critical, "--days", "30", "--json=false")
	if err == nil || !strings.Contains(err.Error(), "at risk") {
		t.Errorf("check error = %v, want at-risk failure", err)
	}
}

func TestUnknownBackend(t *testing.T) {
	if _, err := execute(t, "metrics", "--backend", "sheets"); err == nil {
		t.Error("expected error for unknown backend")
	}
}
