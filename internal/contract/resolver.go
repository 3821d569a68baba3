package contract

import (
	"royalty-split-manager/internal/domain"
)

// ResolveTemplateTypes maps a collaborator's role and nonzero shares on a
// work to the set of contract templates that role requires. Total over every
// role/share combination, deterministic, no I/O. The label role is internal
// and never bears a contract.
func ResolveTemplateTypes(roleInSong string, publishingOwnership, masterOwnership float64) map[string]bool {
	types := make(map[string]bool)

	switch roleInSong {
	case domain.RoleWriter:
		if publishingOwnership > 0 {
			types[domain.TemplateSongwriterPublishing] = true
		}
	case domain.RoleArtist:
		if publishingOwnership > 0 {
			types[domain.TemplateSongwriterPublishing] = true
		}
		if masterOwnership > 0 {
			types[domain.TemplateDigitalMasterOnly] = true
		}
	case domain.RoleMusician:
		if masterOwnership > 0 {
			types[domain.TemplateDigitalMasterOnly] = true
		}
	case domain.RoleProducer:
		if masterOwnership > 0 {
			types[domain.TemplateProducerAgreement] = true
		}
	}

	return types
}

// ResolveForShare is the nullable-field variant used against stored rows.
func ResolveForShare(share domain.CollaboratorShare) map[string]bool {
	var pub, master float64
	if share.PublishingOwnership != nil {
		pub = *share.PublishingOwnership
	}
	if share.MasterOwnership != nil {
		master = *share.MasterOwnership
	}
	return ResolveTemplateTypes(share.RoleInSong, pub, master)
}
