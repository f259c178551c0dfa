package profile

import (
	"encoding/json"
	"fmt"

	perrors "github.com/muhasabah-app/profilesync/internal/errors"
)

// Fields a patch may never set directly; they are owned by the engine.
var reservedPublicKeys = map[string]bool{
	"userId":    true,
	"version":   true,
	"createdAt": true,
	"updatedAt": true,
}

var reservedPrivateKeys = map[string]bool{
	"version":      true,
	"lastModified": true,
	"deviceId":     true,
}

// ValidatePublicPatch rejects malformed public patches before any network
// call is made.
func ValidatePublicPatch(patch map[string]any) error {
	return validatePatch(patch, reservedPublicKeys)
}

// ValidatePrivatePatch rejects malformed private patches before any network
// call is made.
func ValidatePrivatePatch(patch map[string]any) error {
	return validatePatch(patch, reservedPrivateKeys)
}

func validatePatch(patch map[string]any, reserved map[string]bool) error {
	for key := range patch {
		if reserved[key] {
			return fmt.Errorf("patch sets reserved field %q: %w", key, perrors.ErrValidation)
		}
	}
	if _, err := json.Marshal(patch); err != nil {
		return fmt.Errorf("patch is not serializable: %w", perrors.ErrValidation)
	}
	return nil
}

// MergePublic applies a patch to a public profile, deep-merging nested
// objects. Version, timestamps and identity fields are untouched; bumping
// the version is the sync engine's job.
func MergePublic(current *PublicProfile, patch map[string]any) (*PublicProfile, error) {
	merged := &PublicProfile{}
	if err := mergeDocument(current, patch, merged); err != nil {
		return nil, err
	}
	merged.UserID = current.UserID
	merged.Version = current.Version
	merged.CreatedAt = current.CreatedAt
	merged.UpdatedAt = current.UpdatedAt
	return merged, nil
}

// MergePrivate applies a patch to a private profile, deep-merging nested
// dictionaries such as the dynamic-attribute counters.
func MergePrivate(current *PrivateProfile, patch map[string]any) (*PrivateProfile, error) {
	merged := &PrivateProfile{}
	if err := mergeDocument(current, patch, merged); err != nil {
		return nil, err
	}
	merged.Version = current.Version
	merged.LastModified = current.LastModified
	merged.DeviceID = current.DeviceID
	return merged, nil
}

// mergeDocument round-trips the document through its JSON form, deep-merges
// the patch, and decodes the result into out.
func mergeDocument(current any, patch map[string]any, out any) error {
	raw, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to unmarshal document: %w", err)
	}

	deepMerge(doc, patch)

	raw, err = json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal merged document: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("patch does not fit the document shape: %w", perrors.ErrValidation)
	}
	return nil
}

// deepMerge merges src into dst. Nested objects merge recursively; every
// other value, including arrays, replaces the destination wholesale.
func deepMerge(dst, src map[string]any) {
	for key, value := range src {
		srcMap, srcIsMap := value.(map[string]any)
		dstMap, dstIsMap := dst[key].(map[string]any)
		if srcIsMap && dstIsMap {
			deepMerge(dstMap, srcMap)
			continue
		}
		dst[key] = value
	}
}
