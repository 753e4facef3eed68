package esloglib_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matijav64/eslog-processor/pkg/esloglib"
)

const sampleInvoice = `<?xml version="1.0" encoding="UTF-8"?>
<Invoice xmlns="urn:eslog:2.00">
  <S_BGM><C_C106><D_1004>RAC-77</D_1004></C_C106></S_BGM>
  <S_DTM><C_C507><D_2005>35</D_2005><D_2380>20240301</D_2380></C_C507></S_DTM>
  <G_SG2>
    <S_NAD><D_3035>SU</D_3035><C_C082><D_3039>9001</D_3039></C_C082></S_NAD>
    <S_RFF><C_C506><D_1153>VA</D_1153><D_1154>SI12345678</D_1154></C_C506></S_RFF>
  </G_SG2>
  <G_SG26>
    <S_LIN><C_C212><D_7140>1001</D_7140></C_C212></S_LIN>
    <S_QTY><C_C186><D_6060>2</D_6060></C_C186></S_QTY>
    <S_MOA><C_C516><D_5025>203</D_5025><D_5004>10.00</D_5004></C_C516></S_MOA>
    <G_SG34>
      <S_TAX><C_C243><D_5278>22</D_5278></C_C243></S_TAX>
      <S_MOA><C_C516><D_5025>124</D_5025><D_5004>2.20</D_5004></C_C516></S_MOA>
    </G_SG34>
  </G_SG26>
  <G_SG26>
    <S_LIN><C_C212><D_7140>1001</D_7140></C_C212></S_LIN>
    <S_QTY><C_C186><D_6060>3</D_6060></C_C186></S_QTY>
    <S_MOA><C_C516><D_5025>203</D_5025><D_5004>15.00</D_5004></C_C516></S_MOA>
    <G_SG34>
      <S_TAX><C_C243><D_5278>22</D_5278></C_C243></S_TAX>
      <S_MOA><C_C516><D_5025>124</D_5025><D_5004>3.30</D_5004></C_C516></S_MOA>
    </G_SG34>
  </G_SG26>
  <G_SG50>
    <S_MOA><C_C516><D_5025>389</D_5025><D_5004>25.00</D_5004></C_C516></S_MOA>
  </G_SG50>
</Invoice>`

func TestProcess_MergesRepeatedArticles(t *testing.T) {
	p := esloglib.NewDefaultProcessor()

	res, err := p.Process(context.Background(), strings.NewReader(sampleInvoice))
	require.NoError(t, err)

	assert.Equal(t, "RAC-77", res.Invoice.Number)
	assert.False(t, res.NeedsReview)
	require.Len(t, res.Ledger, 1)
	assert.Equal(t, "1001", res.Ledger[0].ArticleCode)
	assert.Equal(t, "5", res.Ledger[0].Quantity.String())
	assert.Equal(t, "25", res.Ledger[0].NetAmount.String())
	assert.Equal(t, "5.5", res.Ledger[0].VATAmount.String())
	assert.Equal(t, "25", res.Summary.Net.String())
	assert.Equal(t, "30.5", res.Summary.Gross.String())
}

func TestProcess_MergeDisabled(t *testing.T) {
	opts := esloglib.DefaultProcessorOptions()
	opts.MergeLines = false
	p := esloglib.NewProcessor(opts)

	res, err := p.Process(context.Background(), strings.NewReader(sampleInvoice))
	require.NoError(t, err)

	assert.Len(t, res.Ledger, 2)
	assert.Equal(t, "25", res.Summary.Net.String())
}

func TestProcess_ParseErrorSurfaces(t *testing.T) {
	p := esloglib.NewDefaultProcessor()

	_, err := p.Process(context.Background(), strings.NewReader("not xml"))
	require.Error(t, err)

	var perr *esloglib.ParseError
	assert.True(t, errors.As(err, &perr))
}

func TestProcessFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invoice.xml")
	require.NoError(t, os.WriteFile(path, []byte(sampleInvoice), 0o644))

	p := esloglib.NewDefaultProcessor()
	res, err := p.ProcessFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "SI12345678", res.Invoice.SupplierVAT)
	assert.False(t, res.NeedsReview)
}

func TestParseInvoice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invoice.xml")
	require.NoError(t, os.WriteFile(path, []byte(sampleInvoice), 0o644))

	rows, summary, ok, err := esloglib.ParseInvoice(path)
	require.NoError(t, err)

	assert.True(t, ok)
	require.Len(t, rows, 1)
	assert.Equal(t, "25", summary.Net.String())
}
