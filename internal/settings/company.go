package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Company: identité de l'entreprise portée sur les factures et reçus.
// Persistée dans <upload>/company.json, pas en base: c'est un singleton
// de configuration, pas une entité métier.
type Company struct {
	Nom       string  `json:"nom"`
	Adresse   string  `json:"adresse"`
	Telephone string  `json:"telephone"`
	Email     string  `json:"email"`
	NIF       string  `json:"nif,omitempty"`
	RCCM      string  `json:"rccm,omitempty"`
	Devise    string  `json:"devise"`
	TauxTaxe  float64 `json:"taux_taxe"`
}

func defaultCompany() Company {
	return Company{
		Nom:      "Mon Entreprise",
		Devise:   "FCFA",
		TauxTaxe: 0,
	}
}

func companyPath(uploadPath string) string {
	return filepath.Join(uploadPath, "company.json")
}

// LoadCompany lit company.json, ou renvoie les valeurs par défaut si le
// fichier n'existe pas encore.
func LoadCompany(uploadPath string) (Company, error) {
	data, err := os.ReadFile(companyPath(uploadPath))
	if err != nil {
		if os.IsNotExist(err) {
			return defaultCompany(), nil
		}
		return Company{}, err
	}
	c := defaultCompany()
	if err := json.Unmarshal(data, &c); err != nil {
		return Company{}, err
	}
	return c, nil
}

// SaveCompany écrit via un fichier temporaire puis rename, pour ne jamais
// laisser un company.json tronqué.
func SaveCompany(uploadPath string, c Company) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	tmp := companyPath(uploadPath) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, companyPath(uploadPath))
}

// LogoPath sonde logo.png puis logo.jpg, renvoie "" si aucun logo.
func LogoPath(uploadPath string) string {
	for _, name := range []string{"logo.png", "logo.jpg"} {
		p := filepath.Join(uploadPath, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
