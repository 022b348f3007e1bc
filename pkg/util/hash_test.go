package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMd5(t *testing.T) {
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", Md5ThenHex(nil))

	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))
	sum, err := Md5File(path)
	require.NoError(t, err)
	assert.Equal(t, "900150983cd24fb0d6963f7d28e17f72", sum)
	assert.Equal(t, Md5ThenHex([]byte("abc")), sum)

	_, err = Md5File(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestHashUUID(t *testing.T) {
	a := HashUUID(map[string]string{"cmd": "rtss2nifti"})
	assert.Len(t, a, 36)
	assert.Equal(t, a, HashUUID(map[string]string{"cmd": "rtss2nifti"}))
	assert.NotEqual(t, a, HashUUID(map[string]string{"cmd": "nifti2rtss"}))
	assert.Empty(t, HashUUID(func() {}))
}
