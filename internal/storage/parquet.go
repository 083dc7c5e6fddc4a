package storage

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"iptu/pkg/records"
)

// Row is the storage-safe shape of one harmonized record: the canonical
// schema plus the `ano` partition column. Every field is nullable so that a
// year that never carried a column still encodes cleanly.
type Row struct {
	NumeroContribuinte       *string    `parquet:"numero_contribuinte,optional"`
	AnoExercicio             *float64   `parquet:"ano_exercicio,optional"`
	DataCadastramento        *time.Time `parquet:"data_cadastramento,optional,timestamp"`
	TipoContribuinte         *string    `parquet:"tipo_contribuinte,optional"`
	CpfCnpj                  *string    `parquet:"cpf_cnpj,optional"`
	Logradouro               *string    `parquet:"logradouro,optional"`
	Numero                   *string    `parquet:"numero,optional"`
	Complemento              *string    `parquet:"complemento,optional"`
	Bairro                   *string    `parquet:"bairro,optional"`
	Cidade                   *string    `parquet:"cidade,optional"`
	Estado                   *string    `parquet:"estado,optional"`
	FracaoIdeal              *float64   `parquet:"fracao_ideal,optional"`
	AreaTerreno              *float64   `parquet:"area_terreno,optional"`
	AreaConstruida           *float64   `parquet:"area_construida,optional"`
	AreaOcupada              *float64   `parquet:"area_ocupada,optional"`
	ValorM2Terreno           *float64   `parquet:"valor_m2_terreno,optional"`
	ValorM2Construcao        *float64   `parquet:"valor_m2_construcao,optional"`
	AnoConstrucao            *float64   `parquet:"ano_construcao,optional"`
	QtdPavimentos            *float64   `parquet:"qtd_pavimentos,optional"`
	TipoUsoImovel            *string    `parquet:"tipo_uso_imovel,optional"`
	TipoPadraoConstrucao     *string    `parquet:"tipo_padrao_construcao,optional"`
	FatorObsolescencia       *float64   `parquet:"fator_obsolescencia,optional"`
	AnoMesInicioContribuicao *string    `parquet:"ano_mes_inicio_contribuicao,optional"`
	ValorTotalImovel         *float64   `parquet:"valor_total_imovel,optional"`
	ValorIptu                *float64   `parquet:"valor_iptu,optional"`
	Cep                      *string    `parquet:"cep,optional"`
	RegimeTributacaoIptu     *string    `parquet:"regime_tributacao_iptu,optional"`
	RegimeTributacaoTrsd     *string    `parquet:"regime_tributacao_trsd,optional"`
	TipoConstrucao           *string    `parquet:"tipo_construcao,optional"`
	TipoEmpreendimento       *string    `parquet:"tipo_empreendimento,optional"`
	TipoEstrutura            *string    `parquet:"tipo_estrutura,optional"`
	CodigoLogradouro         *string    `parquet:"codigo_logradouro,optional"`
	Ano                      *int64     `parquet:"ano,optional"`
}

// ToRow coerces one harmonized record into the storage shape. Cells the
// harmonizer left as strings are best-effort coerced here; unconvertible
// numeric cells become null, same policy as everywhere else.
func ToRow(r records.Record) Row {
	return Row{
		NumeroContribuinte:       optString(r["numero_contribuinte"]),
		AnoExercicio:             optFloat(r["ano_exercicio"]),
		DataCadastramento:        optTime(r["data_cadastramento"]),
		TipoContribuinte:         optString(r["tipo_contribuinte"]),
		CpfCnpj:                  optString(r["cpf_cnpj"]),
		Logradouro:               optString(r["logradouro"]),
		Numero:                   optString(r["numero"]),
		Complemento:              optString(r["complemento"]),
		Bairro:                   optString(r["bairro"]),
		Cidade:                   optString(r["cidade"]),
		Estado:                   optString(r["estado"]),
		FracaoIdeal:              optFloat(r["fracao_ideal"]),
		AreaTerreno:              optFloat(r["area_terreno"]),
		AreaConstruida:           optFloat(r["area_construida"]),
		AreaOcupada:              optFloat(r["area_ocupada"]),
		ValorM2Terreno:           optFloat(r["valor_m2_terreno"]),
		ValorM2Construcao:        optFloat(r["valor_m2_construcao"]),
		AnoConstrucao:            optFloat(r["ano_construcao"]),
		QtdPavimentos:            optFloat(r["qtd_pavimentos"]),
		TipoUsoImovel:            optString(r["tipo_uso_imovel"]),
		TipoPadraoConstrucao:     optString(r["tipo_padrao_construcao"]),
		FatorObsolescencia:       optFloat(r["fator_obsolescencia"]),
		AnoMesInicioContribuicao: optString(r["ano_mes_inicio_contribuicao"]),
		ValorTotalImovel:         optFloat(r["valor_total_imovel"]),
		ValorIptu:                optFloat(r["valor_iptu"]),
		Cep:                      optString(r["cep"]),
		RegimeTributacaoIptu:     optString(r["regime_tributacao_iptu"]),
		RegimeTributacaoTrsd:     optString(r["regime_tributacao_trsd"]),
		TipoConstrucao:           optString(r["tipo_construcao"]),
		TipoEmpreendimento:       optString(r["tipo_empreendimento"]),
		TipoEstrutura:            optString(r["tipo_estrutura"]),
		CodigoLogradouro:         optString(r["codigo_logradouro"]),
		Ano:                      optInt(r["ano"]),
	}
}

// EncodeParquet renders a harmonized table as a Parquet file in memory.
func EncodeParquet(t *records.Table) ([]byte, error) {
	rows := make([]Row, 0, t.Len())
	for _, r := range t.Rows {
		rows = append(rows, ToRow(r))
	}

	var buf bytes.Buffer
	w := parquet.NewGenericWriter[Row](&buf, parquet.Compression(&parquet.Snappy))
	if len(rows) > 0 {
		if _, err := w.Write(rows); err != nil {
			return nil, fmt.Errorf("storage: write parquet rows: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("storage: close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

func optString(v any) *string {
	if v == nil {
		return nil
	}
	s := records.AsString(v)
	return &s
}

func optFloat(v any) *float64 {
	if v == nil {
		return nil
	}
	f, ok := records.AsFloat(strings.TrimSpace(records.AsString(v)))
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func optInt(v any) *int64 {
	switch t := v.(type) {
	case nil:
		return nil
	case int64:
		return &t
	case int:
		i := int64(t)
		return &i
	default:
		f := optFloat(v)
		if f == nil || *f != math.Trunc(*f) {
			return nil
		}
		i := int64(*f)
		return &i
	}
}

func optTime(v any) *time.Time {
	if t, ok := v.(time.Time); ok {
		return &t
	}
	return nil
}
