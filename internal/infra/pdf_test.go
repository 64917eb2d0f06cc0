package infra

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"medicalmuneras/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComprobanteFileName(t *testing.T) {
	name := ComprobanteFileName("R100")
	assert.Regexp(t, `^comprobante_R100_[0-9a-f]{12}\.pdf$`, name)
	assert.Equal(t, name, ComprobanteFileName("R100"), "stable for the same id")
	assert.Regexp(t, `^comprobante_R100-G_[0-9a-f]{12}\.pdf$`, ComprobanteFileName("R100-G"))

	traversal := ComprobanteFileName("../../etc/passwd")
	assert.Regexp(t, `^comprobante_______etc_passwd_[0-9a-f]{12}\.pdf$`, traversal)
	assert.Equal(t, traversal, filepath.Base(traversal))
}

func TestComprobanteFileName_SanitizedIDsDoNotCollide(t *testing.T) {
	ids := []string{"R.100", "R_100", "R 100", "R/100", "R100"}
	seen := map[string]string{}
	for _, id := range ids {
		name := ComprobanteFileName(id)
		if prev, ok := seen[name]; ok {
			t.Fatalf("%q and %q share %s", prev, id, name)
		}
		seen[name] = id
	}
}

func TestGenerateComprobanteEntregaPDF_DistinctFilesForLookalikeIDs(t *testing.T) {
	dir := t.TempDir()
	salida := time.Date(2026, 3, 10, 16, 0, 0, 0, time.UTC)
	render := func(id, cliente string) string {
		rem := &model.Remision{ID: id, ClienteNombre: &cliente, FechaSalida: &salida, CreatedAt: salida}
		path, err := GenerateComprobanteEntregaPDF(rem, "Medical Muñeras", time.UTC, dir)
		require.NoError(t, err)
		return path
	}

	a := render("R.100", "Clínica Norte")
	b := render("R_100", "Clínica Sur")
	assert.NotEqual(t, a, b)
	assert.FileExists(t, a)
	assert.FileExists(t, b)

	// Only the two receipts remain; no temp files are left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestGenerateComprobanteEntregaPDF(t *testing.T) {
	salida := time.Date(2026, 3, 10, 16, 0, 0, 0, time.UTC)
	fee := decimal.NewFromInt(3000)
	metodo := "Tarjeta"
	cliente := "Clínica Norte"
	rem := &model.Remision{
		ID:            "R100",
		TotalValue:    decimal.NewFromInt(53000),
		DepositValue:  decimal.NewFromInt(20000),
		DepositMethod: "Efectivo",
		MetodoSaldo:   &metodo,
		ClienteNombre: &cliente,
		FechaSalida:   &salida,
		CreatedAt:     salida.Add(-48 * time.Hour),
		Registros: []model.RegistroTecnico{
			{ID: uuid.New(), Equipo: "Glucometro", Marca: "Accu-Chek", Serial: "GX-1", Valor: decimal.NewFromInt(50000)},
			{ID: uuid.New(), Equipo: "Tensiometro de muñeca", Valor: decimal.NewFromInt(9000), DadoBaja: true, RevisionValor: &fee},
		},
	}
	dir := filepath.Join(t.TempDir(), "nested")

	path, err := GenerateComprobanteEntregaPDF(rem, "Medical Muñeras", time.UTC, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ComprobanteFileName("R100")), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, len(data) > 0)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestGenerateComprobanteEntregaPDF_Garantia(t *testing.T) {
	base := "R100"
	salida := time.Now()
	rem := &model.Remision{ID: "R100-G", BaseRemisionID: &base, FechaSalida: &salida, CreatedAt: salida}

	path, err := GenerateComprobanteEntregaPDF(rem, "Medical Muñeras", nil, t.TempDir())
	require.NoError(t, err)
	assert.FileExists(t, path)
}
