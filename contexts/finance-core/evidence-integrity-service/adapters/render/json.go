package render

import (
	"context"
	"encoding/json"

	"oddlybrilliant/contexts/finance-core/evidence-integrity-service/domain/entities"
	"oddlybrilliant/contexts/finance-core/evidence-integrity-service/ports"
)

// JSONRenderer emits the document as indented JSON with the verification QR
// code embedded as a base64 PNG. Output is a pure function of the document.
type JSONRenderer struct{}

func (JSONRenderer) Render(_ context.Context, doc entities.Document) ([]byte, error) {
	if doc.Verification.URL != "" && len(doc.Verification.QRCodePNG) == 0 {
		png, err := verificationQR(doc.Verification.URL)
		if err != nil {
			return nil, err
		}
		doc.Verification.QRCodePNG = png
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func (JSONRenderer) ContentType() string {
	return "application/json"
}

func (JSONRenderer) Extension() string {
	return "json"
}

var _ ports.Renderer = JSONRenderer{}
