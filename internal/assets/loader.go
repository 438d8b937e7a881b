package assets

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ValidationError 레지스트리 파일 검증 실패
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// file is the on-disk layout of the registry
type file struct {
	Assets []Asset `yaml:"assets"`
}

// Load reads a YAML registry file
// KnownFields(true)로 오타/미사용 필드 즉시 실패
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read asset registry: %w", err)
	}
	return Parse(data)
}

// Parse decodes registry YAML
func Parse(data []byte) (*Registry, error) {
	var f file
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // 알 수 없는 필드 발견 시 에러 반환
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode asset registry: %w", err)
	}
	return NewRegistry(f.Assets)
}

// LoadOrDefault loads path when set, otherwise returns Defaults()
func LoadOrDefault(path string) (*Registry, error) {
	if path == "" {
		return Defaults(), nil
	}
	return Load(path)
}
