package provenance

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordChain(t *testing.T) {
	dir := t.TempDir()
	mask := filepath.Join(dir, "mask.nii")
	require.NoError(t, os.WriteFile(mask, []byte("abc"), 0o644))

	first, err := New([]string{"segment", mask}, "NA")
	require.NoError(t, err)
	_, err = first.Write(mask)
	require.NoError(t, err)

	rec, err := New([]string{"rtssctl", "nifti2rtss", mask, dir}, "deadbeef", mask, dir)
	require.NoError(t, err)
	require.Len(t, rec.Inputs, 2)
	assert.Equal(t, "900150983cd24fb0d6963f7d28e17f72", rec.Inputs[0].MD5)
	assert.Empty(t, rec.Inputs[1].MD5)
	require.Len(t, rec.History, 1)
	assert.Equal(t, mask, rec.History[0].Path)
	assert.Len(t, rec.ID, 36)

	out := filepath.Join(dir, "rtss.dcm")
	path, err := rec.Write(out)
	require.NoError(t, err)
	assert.Equal(t, out+".rec", path)

	text, err := Read(path)
	require.NoError(t, err)
	lines := strings.Split(text, "\n")
	assert.True(t, strings.HasSuffix(lines[0], ": rtssctl nifti2rtss "+mask+" "+dir+" (Git hash: deadbeef)"), lines[0])
	assert.Contains(t, text, "input: "+mask+" md5=900150983cd24fb0d6963f7d28e17f72\n")
	assert.Contains(t, text, "input: "+dir+"\n")
	assert.Contains(t, text, "\nHistory of "+mask+":\n  ")
	assert.Contains(t, text, "  node: ")
	assert.Contains(t, text, "(Git hash: NA)")
}

func TestMissingInput(t *testing.T) {
	_, err := New([]string{"x"}, "NA", filepath.Join(t.TempDir(), "nope.nii"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
