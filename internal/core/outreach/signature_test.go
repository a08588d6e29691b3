package outreach

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agenthands/leadblitz/internal/core/model"
)

func TestRenderSignature(t *testing.T) {
	assert.Empty(t, RenderSignature(nil))
	assert.Empty(t, RenderSignature(&model.EmailSignature{BasePitch: "We build websites"}))

	sig := &model.EmailSignature{
		FullName:    " Jane Doe ",
		Position:    "Owner",
		CompanyName: "Acme Web",
		Phone:       "+44 113 000 0000",
		Website:     "acme.co.uk",
		Disclaimer:  "Reply STOP to opt out.",
	}
	assert.Equal(t, "--\nJane Doe\nOwner, Acme Web\n+44 113 000 0000\nacme.co.uk\n\nReply STOP to opt out.", RenderSignature(sig))

	assert.Equal(t, "--\nAcme Web", RenderSignature(&model.EmailSignature{CompanyName: "Acme Web"}))

	sig.CustomSignature = "  Cheers,\nJ  "
	assert.Contains(t, RenderSignature(sig), "Jane Doe")
	sig.UseCustom = true
	assert.Equal(t, "Cheers,\nJ", RenderSignature(sig))

	sig.CustomSignature = " "
	assert.Contains(t, RenderSignature(sig), "Jane Doe")
}
