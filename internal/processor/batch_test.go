package processor_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matijav64/eslog-processor/internal/processor"
)

const batchInvoice = `<?xml version="1.0" encoding="UTF-8"?>
<Invoice xmlns="urn:eslog:2.00">
  <S_BGM><C_C106><D_1004>BATCH-1</D_1004></C_C106></S_BGM>
  <G_SG26>
    <S_LIN><C_C212><D_7140>1001</D_7140></C_C212></S_LIN>
    <S_QTY><C_C186><D_6060>1</D_6060></C_C186></S_QTY>
    <S_MOA><C_C516><D_5025>203</D_5025><D_5004>10.00</D_5004></C_C516></S_MOA>
  </G_SG26>
  <G_SG50>
    <S_MOA><C_C516><D_5025>389</D_5025><D_5004>10.00</D_5004></C_C516></S_MOA>
  </G_SG50>
</Invoice>`

func writeInvoice(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestBatch_ProcessFiles(t *testing.T) {
	dir := t.TempDir()
	good := writeInvoice(t, dir, "good.xml", batchInvoice)
	bad := writeInvoice(t, dir, "bad.xml", "")

	b := processor.NewBatch(processor.WithWorkers(2))
	results := b.ProcessFiles(context.Background(), []string{good, bad})
	require.Len(t, results, 2)

	// input order is preserved
	assert.Equal(t, good, results[0].Path)
	assert.Equal(t, bad, results[1].Path)

	require.NoError(t, results[0].Err)
	assert.Equal(t, "BATCH-1", results[0].Invoice.Number)
	assert.True(t, results[0].Result.OK)
	assert.Equal(t, "10", results[0].Summary.Net.String())

	assert.Error(t, results[1].Err)
	assert.Nil(t, results[1].Invoice)
}

func TestBatch_ProcessDir(t *testing.T) {
	dir := t.TempDir()
	writeInvoice(t, dir, "a.xml", batchInvoice)
	writeInvoice(t, dir, "b.XML", batchInvoice)
	writeInvoice(t, dir, "notes.txt", "not an invoice")

	b := processor.NewBatch()
	results, err := b.ProcessDir(context.Background(), dir)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestBatch_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	path := writeInvoice(t, dir, "a.xml", batchInvoice)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := processor.NewBatch(processor.WithWorkers(1))
	results := b.ProcessFiles(ctx, []string{path})
	require.Len(t, results, 1)
	assert.Error(t, results[0].Err)
}

func TestBatch_MissingFile(t *testing.T) {
	b := processor.NewBatch()
	results := b.ProcessFiles(context.Background(), []string{"/nonexistent/invoice.xml"})
	require.Len(t, results, 1)
	assert.Error(t, results[0].Err)
}
