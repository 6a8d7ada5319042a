package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInitCommand(t *testing.T) {
	tests := []struct {
		name      string
		setupDir  func(t *testing.T, dir string)
		args      []string
		wantErr   bool
		wantFiles []string
	}{
		{
			name:      "init empty directory",
			args:      []string{},
			wantFiles: []string{"zillowetl.yaml", ".gitignore"},
		},
		{
			name: "init existing config without force",
			setupDir: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "zillowetl.yaml"), []byte("existing"), 0600))
			},
			args:    []string{},
			wantErr: true,
		},
		{
			name: "init existing config with force",
			setupDir: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "zillowetl.yaml"), []byte("existing"), 0600))
			},
			args:      []string{"--force"},
			wantFiles: []string{"zillowetl.yaml"},
		},
		{
			name: "init example",
			args: []string{"--example"},
			wantFiles: []string{
				"zillowetl.yaml",
				"data/zillow-raw/raw-data/Metro_zhvi_uc_sfrcondo_tier_0.33_0.67_sm_sa_month.csv",
				"data/zillow-raw/raw-data/Metro_zori_uc_sfrcondomfr_sm_sa_month.csv",
				"data/zillow-staging",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			t.Chdir(tmpDir)

			if tt.setupDir != nil {
				tt.setupDir(t, tmpDir)
			}

			cmd := NewInitCommand()
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			for _, f := range tt.wantFiles {
				_, err := os.Stat(filepath.Join(tmpDir, filepath.FromSlash(f)))
				assert.NoError(t, err, "expected %q to exist", f)
			}
		})
	}
}

func TestInitIntoDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "project")

	cmd := NewInitCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetArgs([]string{dir})
	require.NoError(t, cmd.Execute())

	_, err := os.Stat(filepath.Join(dir, "zillowetl.yaml"))
	assert.NoError(t, err)
}

func TestInitCreatesValidConfig(t *testing.T) {
	t.Chdir(t.TempDir())

	cmd := NewInitCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())

	content, err := os.ReadFile("zillowetl.yaml")
	require.NoError(t, err)

	for _, expected := range []string{
		"raw_bucket: zillow-raw",
		"staging_prefix: processed-data/",
		"combined_key: combined-data/combined.parquet",
		"iam_role: ${REDSHIFT_IAM_ROLE}",
		"state_path:",
	} {
		assert.Contains(t, string(content), expected)
	}
}

func TestInitSkipsPlaceholders(t *testing.T) {
	files, err := listTemplateFiles("example")
	require.NoError(t, err)
	for _, f := range files {
		assert.NotEqual(t, ".keep", filepath.Base(f))
	}

	groups := groupTemplateFiles(files)
	assert.Contains(t, groups["config"], "zillowetl.yaml")
	assert.Contains(t, groups["config"], ".gitignore")
	assert.Len(t, groups["data"], 3)
}

func TestRenameSpecialFiles(t *testing.T) {
	assert.Equal(t, ".gitignore", renameSpecialFiles("gitignore"))
	assert.Equal(t, "sub/.gitignore", renameSpecialFiles("sub/gitignore"))
	assert.Equal(t, "zillowetl.yaml", renameSpecialFiles("zillowetl.yaml"))
}
