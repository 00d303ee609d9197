package invoice

import (
	"image"
	"os"

	"github.com/phpdave11/gofpdf"
)

// PNGToPDF enveloppe un PNG déjà rendu dans un PDF d'une page aux
// dimensions exactes de l'image, en points. Le PNG reste le rendu de
// référence, le PDF n'est qu'un conteneur d'impression.
func PNGToPDF(pngPath, pdfPath string) error {
	f, err := os.Open(pngPath)
	if err != nil {
		return &RenderError{Document: pngPath, Err: err}
	}
	cfg, _, err := image.DecodeConfig(f)
	f.Close()
	if err != nil {
		return &RenderError{Document: pngPath, Err: err}
	}

	w := float64(cfg.Width)
	h := float64(cfg.Height)

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: w, Ht: h},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	pdf.ImageOptions(pngPath, 0, 0, w, h, false,
		gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	tmp := pdfPath + ".tmp"
	if err := pdf.OutputFileAndClose(tmp); err != nil {
		os.Remove(tmp)
		return &RenderError{Document: pdfPath, Err: err}
	}
	return os.Rename(tmp, pdfPath)
}
