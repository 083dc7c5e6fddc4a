package schema

import "testing"

/*
TestFindColumn exercises the two-pass resolution: exact case-insensitive
equality first, then the squashed-substring fallback, with earlier patterns
always beating later ones.
*/
func TestFindColumn(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		columns  []string
		patterns []string
		want     string
		wantOK   bool
	}{
		{
			name:     "exact match case-insensitive",
			columns:  []string{"Ano do Exercício", "Logradouro"},
			patterns: []string{"ano do exercício"},
			want:     "Ano do Exercício",
			wantOK:   true,
		},
		{
			name:     "accented header resolves via accented alias",
			columns:  []string{"Número do Contribuinte"},
			patterns: []string{"número do contribuinte", "numero do contribuinte"},
			want:     "Número do Contribuinte",
			wantOK:   true,
		},
		{
			name:     "partial match squashes underscores and spaces",
			columns:  []string{"num_contribuinte_raw"},
			patterns: []string{"contribuinte"},
			want:     "num_contribuinte_raw",
			wantOK:   true,
		},
		{
			name:     "earlier pattern beats later even when later is exact",
			columns:  []string{"valor_venal", "valor"},
			patterns: []string{"valor", "valor_venal"},
			want:     "valor",
			wantOK:   true,
		},
		{
			name:     "exact pass wins over partial within one pattern",
			columns:  []string{"valor_total_geral", "valor_total"},
			patterns: []string{"valor_total"},
			want:     "valor_total",
			wantOK:   true,
		},
		{
			name:     "no accent folding in resolver",
			columns:  []string{"Exercicio"},
			patterns: []string{"exercício"},
			want:     "",
			wantOK:   false,
		},
		{
			name:     "nothing resolves",
			columns:  []string{"foo", "bar"},
			patterns: []string{"contribuinte"},
			want:     "",
			wantOK:   false,
		},
		{
			name:     "empty columns",
			columns:  nil,
			patterns: []string{"ano"},
			want:     "",
			wantOK:   false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := FindColumn(tt.columns, tt.patterns)
			if ok != tt.wantOK || got != tt.want {
				t.Fatalf("FindColumn(%v, %v) = (%q, %v), want (%q, %v)",
					tt.columns, tt.patterns, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

/*
TestNormalizeName verifies lowercasing, trimming, underscore substitution and
the fixed accent fold.
*/
func TestNormalizeName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want string
	}{
		{"Número do Contribuinte", "numero_do_contribuinte"},
		{"  Ano do Exercício  ", "ano_do_exercicio"},
		{"Tipo de Construção", "tipo_de_construcao"},
		{"CEP", "cep"},
		{"já_normalizado", "ja_normalizado"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeName(tt.raw); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

/*
TestCanonical checks the canonical schema invariants the rest of the pipeline
relies on: stable size, first/last columns, and that Rename only targets
canonical names or Drop.
*/
func TestCanonical(t *testing.T) {
	t.Parallel()

	names := CanonicalNames()
	if len(names) != 32 {
		t.Fatalf("len(CanonicalNames()) = %d, want 32", len(names))
	}
	if names[0] != "numero_contribuinte" {
		t.Fatalf("first canonical column = %q, want numero_contribuinte", names[0])
	}
	if names[len(names)-1] != "codigo_logradouro" {
		t.Fatalf("last canonical column = %q, want codigo_logradouro", names[len(names)-1])
	}

	canonicalSet := map[string]struct{}{}
	for _, n := range names {
		canonicalSet[n] = struct{}{}
	}

	// Every rename target must be canonical (or the Drop marker).
	for _, probe := range []string{
		"numero_do_contribuinte",
		"valor_total_do_imovel_estimado",
		"cpf/cnpj_mascarado_do_contribuinte",
		"_id",
	} {
		target, known := Rename(probe)
		if !known {
			t.Fatalf("Rename(%q) unknown, want known", probe)
		}
		if target == Drop {
			continue
		}
		if _, ok := canonicalSet[target]; !ok {
			t.Fatalf("Rename(%q) = %q, not a canonical column", probe, target)
		}
	}

	if _, known := Rename("coluna_inexistente"); known {
		t.Fatal("Rename(coluna_inexistente) reported known")
	}

	// Returned slices must be copies: mutating them must not corrupt the tables.
	names[0] = "mutated"
	if CanonicalNames()[0] != "numero_contribuinte" {
		t.Fatal("CanonicalNames() exposed internal state")
	}
	cols := Canonical()
	cols[0].Name = "mutated"
	if Canonical()[0].Name != "numero_contribuinte" {
		t.Fatal("Canonical() exposed internal state")
	}
}

/*
TestBusinessFields pins the validator's field set and priority order.
*/
func TestBusinessFields(t *testing.T) {
	t.Parallel()

	fields := BusinessFields()
	wantKeys := []string{
		"contribuinte", "ano", "logradouro", "bairro", "cidade",
		"valor_total", "valor_iptu",
	}
	if len(fields) != len(wantKeys) {
		t.Fatalf("len(BusinessFields()) = %d, want %d", len(fields), len(wantKeys))
	}
	for i, f := range fields {
		if f.Key != wantKeys[i] {
			t.Fatalf("BusinessFields()[%d].Key = %q, want %q", i, f.Key, wantKeys[i])
		}
		if len(f.Patterns) == 0 {
			t.Fatalf("field %q has no alias patterns", f.Key)
		}
	}
}
