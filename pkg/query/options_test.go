package query

import "testing"

func TestEquivalent(t *testing.T) {
	base := Options{VPNDetection: true, ASN: true, UseTLS: true}

	tests := []struct {
		name string
		a, b Options
		want bool
	}{
		{
			name: "identical flags",
			a:    base,
			b:    Options{VPNDetection: true, ASN: true, UseTLS: true},
			want: true,
		},
		{
			name: "zero values",
			a:    Options{},
			b:    Options{},
			want: true,
		},
		{
			name: "vpn differs",
			a:    base,
			b:    Options{ASN: true, UseTLS: true},
			want: false,
		},
		{
			name: "asn differs",
			a:    base,
			b:    Options{VPNDetection: true, UseTLS: true},
			want: false,
		},
		{
			name: "inference differs",
			a:    base,
			b:    Options{VPNDetection: true, ASN: true, UseTLS: true, Inference: true},
			want: false,
		},
		{
			name: "port differs",
			a:    Options{Port: true},
			b:    Options{},
			want: false,
		},
		{
			name: "last seen differs",
			a:    Options{LastSeen: true},
			b:    Options{},
			want: false,
		},
		{
			name: "tls differs",
			a:    Options{UseTLS: true},
			b:    Options{},
			want: false,
		},
		{
			name: "risk level matches",
			a:    Options{RiskLevel: RiskLevelOf(2)},
			b:    Options{RiskLevel: RiskLevelOf(2)},
			want: true,
		},
		{
			name: "risk level differs",
			a:    Options{RiskLevel: RiskLevelOf(1)},
			b:    Options{RiskLevel: RiskLevelOf(2)},
			want: false,
		},
		{
			name: "unset risk is not level zero",
			a:    Options{RiskLevel: nil},
			b:    Options{RiskLevel: RiskLevelOf(0)},
			want: false,
		},
		{
			name: "both risk unset",
			a:    Options{RiskLevel: nil},
			b:    Options{RiskLevel: nil},
			want: true,
		},
		{
			name: "node reporting is not cache relevant",
			a:    Options{ReportNode: true, ReportTime: true},
			b:    Options{},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equivalent(tt.a, tt.b); got != tt.want {
				t.Errorf("Equivalent() = %v, want %v", got, tt.want)
			}
			// Equivalence is symmetric.
			if got := Equivalent(tt.b, tt.a); got != tt.want {
				t.Errorf("Equivalent() reversed = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
	}{
		{"ok", StatusOK},
		{"OK", StatusOK},
		{"warning", StatusWarning},
		{"denied", StatusDenied},
		{"error", StatusError},
		{"something else", StatusError},
		{"", StatusError},
	}

	for _, tt := range tests {
		if got := ParseStatus(tt.in); got != tt.want {
			t.Errorf("ParseStatus(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
