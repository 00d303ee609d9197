package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCompanyDefaultsWhenMissing(t *testing.T) {
	dir := t.TempDir()

	c, err := LoadCompany(dir)

	require.NoError(t, err)
	assert.Equal(t, "Mon Entreprise", c.Nom)
	assert.Equal(t, "FCFA", c.Devise)
	assert.Zero(t, c.TauxTaxe)
}

func TestSaveThenLoadCompany(t *testing.T) {
	dir := t.TempDir()

	saved := Company{
		Nom:      "RealTech Services",
		Adresse:  "Conakry",
		Devise:   "GNF",
		TauxTaxe: 18,
	}
	require.NoError(t, SaveCompany(dir, saved))

	loaded, err := LoadCompany(dir)
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)

	// Pas de fichier temporaire résiduel
	_, err = os.Stat(filepath.Join(dir, "company.json.tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestLogoPathPrefersPNG(t *testing.T) {
	dir := t.TempDir()

	assert.Empty(t, LogoPath(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "logo.jpg"), []byte("jpg"), 0o644))
	assert.Equal(t, filepath.Join(dir, "logo.jpg"), LogoPath(dir))

	// logo.png prioritaire sur logo.jpg
	require.NoError(t, os.WriteFile(filepath.Join(dir, "logo.png"), []byte("png"), 0o644))
	assert.Equal(t, filepath.Join(dir, "logo.png"), LogoPath(dir))
}
