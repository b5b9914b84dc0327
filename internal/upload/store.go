// Package upload はアイテム画像の保存・取得機能を提供する。
package upload

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Store はアップロードされた画像をローカルディスクに保存する。
type Store struct {
	dir string
}

// NewStore はStoreの新しいインスタンスを生成する。
// 保存ディレクトリが存在しない場合は作成する。
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir は保存ディレクトリのパスを返す。
func (s *Store) Dir() string {
	return s.dir
}

// filenameUnsafeChars はファイル名から除去する文字のパターン。
// 英数字、ドット、ハイフン、アンダースコア以外を全て除去する。
var filenameUnsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// SecureFilename はユーザー入力のファイル名を保存に安全な形式に変換する。
// パス区切り文字を除去し、危険な文字をアンダースコアに置換する。
// 変換の結果ファイル名が空や隠しファイル名になる場合は空文字列を返す。
func SecureFilename(name string) string {
	// パス要素を除去（"../../etc/passwd" 対策）
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, " ", "_")
	name = filenameUnsafeChars.ReplaceAllString(name, "")

	// 連続するドットを単一に潰す（".." の残留を防ぐ）
	for strings.Contains(name, "..") {
		name = strings.ReplaceAll(name, "..", ".")
	}
	name = strings.Trim(name, "._")

	if name == "" {
		return ""
	}
	return name
}

// Save はリーダーの内容をサニタイズ済みファイル名で保存し、
// 保存されたファイル名を返す。
// 同名ファイルの衝突を避けるため、ファイル名にはUUIDプレフィックスを付与する。
func (s *Store) Save(originalName string, r io.Reader) (string, error) {
	safe := SecureFilename(originalName)
	if safe == "" {
		return "", fmt.Errorf("invalid filename: %q", originalName)
	}

	stored := uuid.New().String() + "_" + safe
	path := filepath.Join(s.dir, stored)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write upload file: %w", err)
	}

	return stored, nil
}

// Open は保存済みファイルを開く。
// ファイル名は再度サニタイズされるため、パストラバーサルは成立しない。
func (s *Store) Open(storedName string) (*os.File, error) {
	safe := SecureFilename(storedName)
	if safe == "" || safe != storedName {
		return nil, fmt.Errorf("invalid stored filename: %q", storedName)
	}
	f, err := os.Open(filepath.Join(s.dir, safe))
	if err != nil {
		return nil, fmt.Errorf("failed to open upload file: %w", err)
	}
	return f, nil
}

// Remove は保存済みファイルを削除する。存在しない場合もエラーとしない。
func (s *Store) Remove(storedName string) error {
	safe := SecureFilename(storedName)
	if safe == "" || safe != storedName {
		return fmt.Errorf("invalid stored filename: %q", storedName)
	}
	err := os.Remove(filepath.Join(s.dir, safe))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove upload file: %w", err)
	}
	return nil
}
