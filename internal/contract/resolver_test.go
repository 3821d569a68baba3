package contract

import (
	"testing"

	"royalty-split-manager/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestResolveTemplateTypes(t *testing.T) {
	tests := []struct {
		name       string
		role       string
		publishing float64
		master     float64
		want       []string
	}{
		{"writer with publishing", domain.RoleWriter, 0.5, 0, []string{domain.TemplateSongwriterPublishing}},
		{"writer without publishing", domain.RoleWriter, 0, 0.3, nil},
		{"artist with publishing", domain.RoleArtist, 0.2, 0, []string{domain.TemplateSongwriterPublishing}},
		{"artist with master", domain.RoleArtist, 0, 0.2, []string{domain.TemplateDigitalMasterOnly}},
		{"artist with both", domain.RoleArtist, 0.2, 0.2, []string{domain.TemplateSongwriterPublishing, domain.TemplateDigitalMasterOnly}},
		{"musician with master", domain.RoleMusician, 0, 0.1, []string{domain.TemplateDigitalMasterOnly}},
		{"musician with publishing only", domain.RoleMusician, 0.1, 0, nil},
		{"producer with master", domain.RoleProducer, 0, 0.2, []string{domain.TemplateProducerAgreement}},
		{"producer without master", domain.RoleProducer, 0.2, 0, nil},
		{"label never bears a contract", domain.RoleLabel, 0.5, 0.5, nil},
		{"no shares at all", domain.RoleWriter, 0, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveTemplateTypes(tt.role, tt.publishing, tt.master)
			assert.Len(t, got, len(tt.want))
			for _, templateType := range tt.want {
				assert.True(t, got[templateType], "expected %s", templateType)
			}
		})
	}
}

// The resolver must be total: any role and any sign combination produces a
// defined (possibly empty) set without panicking.
func TestResolveTemplateTypes_Total(t *testing.T) {
	roles := []string{
		domain.RoleWriter, domain.RoleArtist, domain.RoleMusician,
		domain.RoleProducer, domain.RoleLabel, "", "unknown",
	}
	values := []float64{-0.1, 0, 0.5}

	for _, role := range roles {
		for _, pub := range values {
			for _, master := range values {
				got := ResolveTemplateTypes(role, pub, master)
				assert.NotNil(t, got)
			}
		}
	}
}

func TestResolveForShare_NilOwnershipsMeanNoStake(t *testing.T) {
	share := domain.CollaboratorShare{RoleInSong: domain.RoleProducer}
	assert.Empty(t, ResolveForShare(share))

	stake := 0.25
	share.MasterOwnership = &stake
	got := ResolveForShare(share)
	assert.True(t, got[domain.TemplateProducerAgreement])
}
