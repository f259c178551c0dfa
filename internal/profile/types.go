package profile

import (
	"time"
)

// GeneralPreferences holds non-sensitive user preferences, freely synced.
type GeneralPreferences struct {
	InputMethod         string `json:"inputMethod"`
	ReflectionFrequency string `json:"reflectionFrequency"`
	Language            string `json:"language"`
}

// PrivacySettings controls what leaves the device and what the engine may
// derive from private data.
type PrivacySettings struct {
	// LocalStorageOnly forbids any private-profile network traffic.
	LocalStorageOnly bool `json:"localStorageOnly"`

	// AllowPersonalization permits private data in the AI context projection.
	AllowPersonalization bool `json:"allowPersonalization"`

	// EnableSync turns on periodic background synchronization.
	EnableSync bool `json:"enableSync"`
}

// UsageStats carries coarse usage counters on the public profile.
type UsageStats struct {
	ReflectionCount int       `json:"reflectionCount"`
	StreakDays      int       `json:"streakDays"`
	LastActiveAt    time.Time `json:"lastActiveAt"`
}

// PublicProfile is the unencrypted half of a user profile. It never
// contains sensitive personal content.
type PublicProfile struct {
	UserID             string             `json:"userId"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
	Version            int64              `json:"version"`
	GeneralPreferences GeneralPreferences `json:"generalPreferences"`
	PrivacySettings    PrivacySettings    `json:"privacySettings"`
	UsageStats         *UsageStats        `json:"usageStats,omitempty"`
}

// Counter tracks how often an engagement key occurred and when it was first
// seen. FirstSeen breaks ties when ranking counters with equal counts.
type Counter struct {
	Count     int64     `json:"count"`
	FirstSeen time.Time `json:"firstSeen"`
}

// Interaction is one entry of the recent-interaction history.
type Interaction struct {
	Topic         string    `json:"topic"`
	ReferenceType string    `json:"referenceType"`
	Timestamp     time.Time `json:"timestamp"`
}

// Attribute categories used in PrivateProfile.DynamicAttributes.
const (
	AttrTopics         = "topics"
	AttrReferenceTypes = "referenceTypes"
)

// maxRecentInteractions bounds the interaction history ring.
const maxRecentInteractions = 50

// PrivateProfile is the sensitive half of a user profile. It exists in
// plaintext only in memory and leaves the device exclusively as an
// EncryptedBlob. Its version counter is independent of PublicProfile's.
type PrivateProfile struct {
	Version      int64     `json:"version"`
	LastModified time.Time `json:"lastModified"`
	DeviceID     string    `json:"deviceId"`

	SpiritualAttributes map[string]string `json:"spiritualAttributes,omitempty"`
	KnowledgeLevel      string            `json:"knowledgeLevel,omitempty"`
	CulturalBackground  string            `json:"culturalBackground,omitempty"`
	Community           string            `json:"community,omitempty"`

	// DynamicAttributes maps a category (AttrTopics, AttrReferenceTypes)
	// to per-key engagement counters.
	DynamicAttributes map[string]map[string]Counter `json:"dynamicAttributes,omitempty"`

	RecentInteractions []Interaction `json:"recentInteractions,omitempty"`
}

// Clone returns a deep copy whose maps and interaction history are
// independent of the receiver's. A nil receiver yields nil.
func (p *PrivateProfile) Clone() *PrivateProfile {
	if p == nil {
		return nil
	}
	out := *p
	if p.SpiritualAttributes != nil {
		out.SpiritualAttributes = make(map[string]string, len(p.SpiritualAttributes))
		for k, v := range p.SpiritualAttributes {
			out.SpiritualAttributes[k] = v
		}
	}
	if p.DynamicAttributes != nil {
		out.DynamicAttributes = make(map[string]map[string]Counter, len(p.DynamicAttributes))
		for category, counters := range p.DynamicAttributes {
			copied := make(map[string]Counter, len(counters))
			for k, c := range counters {
				copied[k] = c
			}
			out.DynamicAttributes[category] = copied
		}
	}
	if p.RecentInteractions != nil {
		out.RecentInteractions = append([]Interaction(nil), p.RecentInteractions...)
	}
	return &out
}

// RecordInteraction increments the engagement counters for an interaction
// and appends it to the bounded recent-interaction history.
func (p *PrivateProfile) RecordInteraction(topic, referenceType string, at time.Time) {
	if p.DynamicAttributes == nil {
		p.DynamicAttributes = make(map[string]map[string]Counter)
	}
	bump := func(category, key string) {
		if key == "" {
			return
		}
		counters := p.DynamicAttributes[category]
		if counters == nil {
			counters = make(map[string]Counter)
			p.DynamicAttributes[category] = counters
		}
		c, ok := counters[key]
		if !ok {
			c = Counter{FirstSeen: at}
		}
		c.Count++
		counters[key] = c
	}
	bump(AttrTopics, topic)
	bump(AttrReferenceTypes, referenceType)

	p.RecentInteractions = append(p.RecentInteractions, Interaction{
		Topic:         topic,
		ReferenceType: referenceType,
		Timestamp:     at,
	})
	if len(p.RecentInteractions) > maxRecentInteractions {
		p.RecentInteractions = p.RecentInteractions[len(p.RecentInteractions)-maxRecentInteractions:]
	}
}

// SyncMetadata tracks the local device's view of both profile halves.
// Created on first use, updated after every successful sync, deleted only
// on full profile reset.
type SyncMetadata struct {
	UserID         string    `json:"userId"`
	DeviceID       string    `json:"deviceId"`
	LastSyncTime   time.Time `json:"lastSyncTime"`
	PublicVersion  int64     `json:"publicVersion"`
	PrivateVersion int64     `json:"privateVersion"`
}
