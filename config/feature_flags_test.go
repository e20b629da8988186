package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureFlags_DefaultsEnabled(t *testing.T) {
	ff := LoadFeatureFlags()

	for name := range ff.GetAllFeatures() {
		assert.True(t, ff.IsEnabled(name, nil), "feature %s should default to enabled", name)
	}
}

func TestFeatureFlags_EnvOverride(t *testing.T) {
	t.Setenv("FEATURE_CERTIFICATES_AUTO_REQUEST", "false")
	t.Setenv("FEATURE_NOTIFY_PUSH_DELIVERY", "0")

	ff := LoadFeatureFlags()

	assert.False(t, ff.IsEnabled(FeatureCertificateAutoRequest, nil))
	assert.False(t, ff.IsEnabled(FeatureNotifyPushDelivery, nil))
	assert.True(t, ff.IsEnabled(FeatureNotifyCourseCompleted, nil))
}

func TestFeatureFlags_RolloutIsConsistentPerStudent(t *testing.T) {
	ff := LoadFeatureFlags()
	require.NoError(t, ff.SetRolloutPercent(FeatureInstructorCourseSummary, 50))

	ctx := &FeatureContext{StudentID: "student-42"}
	first := ff.IsEnabled(FeatureInstructorCourseSummary, ctx)

	// Same student hashes into the same bucket every time
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ff.IsEnabled(FeatureInstructorCourseSummary, ctx))
	}
}

func TestFeatureFlags_ZeroRolloutDisables(t *testing.T) {
	ff := LoadFeatureFlags()
	require.NoError(t, ff.SetRolloutPercent(FeatureNotifyUnitCompleted, 0))

	assert.False(t, ff.IsEnabled(FeatureNotifyUnitCompleted, &FeatureContext{StudentID: "student-1"}))
}

func TestFeatureFlags_StudentOverrideWins(t *testing.T) {
	ff := LoadFeatureFlags()
	require.NoError(t, ff.DisableFeature(FeatureNotifyUnitCompleted))

	ff.SetStudentOverride("student-1", FeatureNotifyUnitCompleted, true)

	assert.True(t, ff.IsEnabled(FeatureNotifyUnitCompleted, &FeatureContext{StudentID: "student-1"}))
	assert.False(t, ff.IsEnabled(FeatureNotifyUnitCompleted, &FeatureContext{StudentID: "student-2"}))

	ff.ClearStudentOverrides("student-1")
	assert.False(t, ff.IsEnabled(FeatureNotifyUnitCompleted, &FeatureContext{StudentID: "student-1"}))
}

func TestFeatureFlags_AdminSeesEverything(t *testing.T) {
	ff := LoadFeatureFlags()
	require.NoError(t, ff.DisableFeature(FeatureCertificateAutoRequest))

	assert.True(t, ff.IsEnabled(FeatureCertificateAutoRequest, &FeatureContext{StudentID: "ops", IsAdmin: true}))
}

func TestFeatureFlags_UnknownFeature(t *testing.T) {
	ff := LoadFeatureFlags()

	assert.False(t, ff.IsEnabled("no.such.feature", nil))
	assert.ErrorIs(t, ff.SetRolloutPercent("no.such.feature", 10), ErrFeatureNotFound)
	assert.ErrorIs(t, ff.SetRolloutPercent(FeatureNotifyUnitCompleted, 150), ErrInvalidRolloutPercent)
}
