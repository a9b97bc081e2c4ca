package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_PutDelete(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(Config{BasePath: dir, BaseURL: "/uploads/"})
	require.NoError(t, err)
	ctx := context.Background()

	url, err := s.Put(ctx, "feedback/abc.png", strings.NewReader("png"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/feedback/abc.png", url)

	data, err := os.ReadFile(filepath.Join(dir, "feedback", "abc.png"))
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))

	key, ok := s.KeyFromURL(url)
	require.True(t, ok)
	require.NoError(t, s.Delete(ctx, key))
	_, err = os.Stat(filepath.Join(dir, "feedback", "abc.png"))
	assert.True(t, os.IsNotExist(err))

	// удаление несуществующего файла не ошибка
	assert.NoError(t, s.Delete(ctx, key))
}

func TestLocalStorage_RejectsTraversal(t *testing.T) {
	s, err := NewLocalStorage(Config{BasePath: t.TempDir()})
	require.NoError(t, err)

	_, err = s.Put(context.Background(), "../escape.txt", strings.NewReader("x"), "text/plain")
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, ok := s.KeyFromURL("https://elsewhere.example.com/a.png")
	assert.False(t, ok)
}
