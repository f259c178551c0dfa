package profile

import "sort"

// TopSignals is how many engagement signals the AI context carries per
// category.
const TopSignals = 5

// AIContext is the privacy-filtered projection of a profile handed to
// personalization consumers. It never carries raw cultural-background or
// community fields.
type AIContext struct {
	Language            string            `json:"language"`
	InputMethod         string            `json:"inputMethod"`
	ReflectionFrequency string            `json:"reflectionFrequency,omitempty"`
	KnowledgeLevel      string            `json:"knowledgeLevel,omitempty"`
	SpiritualAttributes map[string]string `json:"spiritualAttributes,omitempty"`
	TopTopics           []string          `json:"topTopics,omitempty"`
	TopReferenceTypes   []string          `json:"topReferenceTypes,omitempty"`
}

// BuildAIContext derives the AI context projection. When personalization is
// disallowed, only language and input-method preferences are returned, no
// matter what private data exists.
func BuildAIContext(pub *PublicProfile, priv *PrivateProfile) *AIContext {
	if pub == nil {
		return nil
	}

	ctx := &AIContext{
		Language:    pub.GeneralPreferences.Language,
		InputMethod: pub.GeneralPreferences.InputMethod,
	}

	if !pub.PrivacySettings.AllowPersonalization || priv == nil {
		return ctx
	}

	ctx.ReflectionFrequency = pub.GeneralPreferences.ReflectionFrequency
	ctx.KnowledgeLevel = priv.KnowledgeLevel
	if len(priv.SpiritualAttributes) > 0 {
		attrs := make(map[string]string, len(priv.SpiritualAttributes))
		for k, v := range priv.SpiritualAttributes {
			attrs[k] = v
		}
		ctx.SpiritualAttributes = attrs
	}
	ctx.TopTopics = topKeys(priv.DynamicAttributes[AttrTopics], TopSignals)
	ctx.TopReferenceTypes = topKeys(priv.DynamicAttributes[AttrReferenceTypes], TopSignals)

	return ctx
}

// topKeys ranks counters by descending count, breaking ties by first-seen
// order, and returns up to n keys.
func topKeys(counters map[string]Counter, n int) []string {
	if len(counters) == 0 {
		return nil
	}

	keys := make([]string, 0, len(counters))
	for key := range counters {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := counters[keys[i]], counters[keys[j]]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if !a.FirstSeen.Equal(b.FirstSeen) {
			return a.FirstSeen.Before(b.FirstSeen)
		}
		return keys[i] < keys[j]
	})

	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
