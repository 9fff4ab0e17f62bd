package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/ragcore/internal/app"
)

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "ragcore", rootCmd.Use)
}

func TestRootCmd_HasPersistentFlags(t *testing.T) {
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("data-dir"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("verbose"))
}

func TestInitEngine_BuildFailurePropagates(t *testing.T) {
	oldBuild := buildEngine
	oldService := retrievalService
	buildEngine = func(_ context.Context, _, _ string) (*app.App, error) {
		return nil, errors.New("config file is broken")
	}
	retrievalService = nil
	defer func() {
		buildEngine = oldBuild
		retrievalService = oldService
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"status"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "config file is broken")
}

func TestInitEngine_SkipsBuildWhenServiceInjected(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	oldBuild := buildEngine
	buildEngine = func(_ context.Context, _, _ string) (*app.App, error) {
		t.Fatal("buildEngine should not be called when a service is injected")
		return nil, nil
	}
	defer func() { buildEngine = oldBuild }()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"status"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Index status:")
}
