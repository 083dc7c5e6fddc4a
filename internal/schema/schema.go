// Package schema holds the canonical IPTU schema, the historical column
// alias tables, and the column resolution rules used to line heterogeneous
// yearly source schemas up against it.
//
// Everything in this package is static configuration: the tables are loaded
// once at program start and are read-only thereafter.
package schema

// FieldType is the declared semantic type of a canonical column.
type FieldType string

const (
	Text      FieldType = "text"
	Int       FieldType = "int"
	Float     FieldType = "float"
	Timestamp FieldType = "timestamp"
)

// Column pairs a canonical column name with its declared type.
type Column struct {
	Name string
	Type FieldType
}

// canonical is the unified target schema. Order matters: every mapped table
// carries exactly these columns in exactly this order.
var canonical = []Column{
	{"numero_contribuinte", Text},
	{"ano_exercicio", Int},
	{"data_cadastramento", Timestamp},
	{"tipo_contribuinte", Text},
	{"cpf_cnpj", Text},
	{"logradouro", Text},
	{"numero", Text},
	{"complemento", Text},
	{"bairro", Text},
	{"cidade", Text},
	{"estado", Text},
	{"fracao_ideal", Text},
	{"area_terreno", Float},
	{"area_construida", Float},
	{"area_ocupada", Float},
	{"valor_m2_terreno", Float},
	{"valor_m2_construcao", Float},
	{"ano_construcao", Int},
	{"qtd_pavimentos", Int},
	{"tipo_uso_imovel", Text},
	{"tipo_padrao_construcao", Text},
	{"fator_obsolescencia", Float},
	{"ano_mes_inicio_contribuicao", Text},
	{"valor_total_imovel", Float},
	{"valor_iptu", Float},
	{"cep", Text},
	{"regime_tributacao_iptu", Text},
	{"regime_tributacao_trsd", Text},
	{"tipo_construcao", Text},
	{"tipo_empreendimento", Text},
	{"tipo_estrutura", Text},
	{"codigo_logradouro", Text},
}

// Canonical returns the canonical schema in declared order.
func Canonical() []Column {
	out := make([]Column, len(canonical))
	copy(out, canonical)
	return out
}

// CanonicalNames returns the canonical column names in declared order.
func CanonicalNames() []string {
	out := make([]string, len(canonical))
	for i, c := range canonical {
		out[i] = c.Name
	}
	return out
}

// Drop marks a source column that is recognized but intentionally discarded.
const Drop = ""

// renames maps normalized source column names onto canonical names. A Drop
// value means the column is known and deliberately omitted. Source names not
// present here pass through under their normalized name and are cut by the
// final canonical reindex.
var renames = map[string]string{
	"_id": Drop,

	"numero_do_contribuinte":            "numero_contribuinte",
	"ano_do_exercicio":                  "ano_exercicio",
	"data_do_cadastramento":             "data_cadastramento",
	"tipo_de_contribuinte":              "tipo_contribuinte",
	"cpf/cnpj_mascarado_do_contribuinte": "cpf_cnpj",

	"logradouro":        "logradouro",
	"numero":            "numero",
	"complemento":       "complemento",
	"bairro":            "bairro",
	"cidade":            "cidade",
	"estado":            "estado",
	"cep":               "cep",
	"codigo_logradouro": "codigo_logradouro",

	"fracao_ideal":    "fracao_ideal",
	"area_terreno":    "area_terreno",
	"area_construida": "area_construida",
	"area_ocupada":    "area_ocupada",

	"valor_do_m2_do_terreno":         "valor_m2_terreno",
	"valor_do_m2_de_construcao":      "valor_m2_construcao",
	"valor_total_do_imovel_estimado": "valor_total_imovel",
	"valor_iptu":                     "valor_iptu",
	"valor_cobrado_de_iptu":          "valor_iptu",

	"ano_da_construcao_corrigido":  "ano_construcao",
	"quant_pavimentos":             "qtd_pavimentos",
	"quantidade_de_pavimentos":     "qtd_pavimentos",
	"tipo_de_uso_do_imovel":        "tipo_uso_imovel",
	"tipo_de_padrao_da_construcao": "tipo_padrao_construcao",
	"tipo_de_construcao":           "tipo_construcao",
	"tipo_de_empreendimento":       "tipo_empreendimento",
	"tipo_de_estrutura":            "tipo_estrutura",
	"fator_de_obsolescencia":       "fator_obsolescencia",

	"regime_de_tributacao_do_iptu":        "regime_tributacao_iptu",
	"regime_de_tributacao_da_trsd":        "regime_tributacao_trsd",
	"ano_e_mes_de_inicio_da_contribuicao": "ano_mes_inicio_contribuicao",
}

// Rename looks a normalized source name up in the rename table. The second
// result is false when the name is unknown.
func Rename(normalized string) (target string, known bool) {
	target, known = renames[normalized]
	return target, known
}

// FieldAliases lists the known historical spellings of one business field,
// most reliable pattern first.
type FieldAliases struct {
	Key      string
	Patterns []string
}

// businessFields are the fields the quality validator resolves and checks.
// This is a subset of the semantic space covered by the canonical schema;
// the two tables are instantiated independently on purpose.
var businessFields = []FieldAliases{
	{"contribuinte", []string{
		"número do contribuinte", "numero do contribuinte",
		"contribuinte", "num_contribuinte", "cod_contribuinte",
		"inscricao", "inscr",
	}},
	{"ano", []string{
		"ano do exercício", "ano do exercicio",
		"ano", "exercicio", "ano_exercicio", "anoexercicio",
	}},
	{"logradouro", []string{
		"logradouro", "endereco", "rua", "end",
		"nom_logradouro", "tipo_logradouro", "lograd",
		"código logradouro", "codigo logradouro",
	}},
	{"bairro", []string{"bairro", "distrito", "nom_bairro"}},
	{"cidade", []string{"cidade", "municipio", "nom_municipio"}},
	{"valor_total", []string{
		"valor total do imóvel estimado", "valor total do imovel estimado",
		"valor", "valor_total", "valor_venal", "valor_imovel",
		"vl_total", "vlr_total", "val_total",
	}},
	{"valor_iptu", []string{
		"iptu", "valor_iptu", "imposto", "valor_devido",
		"vl_iptu", "vlr_iptu", "val_iptu",
		"regime de tributação do iptu", "regime de tributacao do iptu",
	}},
}

// BusinessFields returns the validator's field/alias table in priority order.
func BusinessFields() []FieldAliases {
	out := make([]FieldAliases, len(businessFields))
	copy(out, businessFields)
	return out
}
