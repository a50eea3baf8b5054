package notifier

import (
	"fmt"
	"net/mail"
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Registry 维护收件人列表：配置里的静态地址，加上可选的 YAML 文件
// （形如 `recipients: [a@x.com, b@y.com]`），文件变更后自动重载。
type Registry struct {
	static []string
	path   string

	mu       sync.RWMutex
	fromFile []string

	watcher *viper.Viper
}

type recipientsFile struct {
	Recipients []string `yaml:"recipients"`
}

// NewRegistry 读取一次收件人文件（若配置）。文件不存在时只用静态列表。
func NewRegistry(static []string, path string) (*Registry, error) {
	r := &Registry{
		static: cleanAddresses(static),
		path:   strings.TrimSpace(path),
	}
	if r.path == "" {
		return r, nil
	}
	if err := r.reload(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return r, nil
}

// List 返回去重后的收件人（静态在前，大小写不敏感去重）。
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	merged := make([]string, 0, len(r.static)+len(r.fromFile))
	merged = append(merged, r.static...)
	merged = append(merged, r.fromFile...)
	return cleanAddresses(merged)
}

// Watch 监听收件人文件变化。未配置文件时为 no-op。
func (r *Registry) Watch() {
	if r.path == "" || r.watcher != nil {
		return
	}
	v := viper.New()
	v.SetConfigFile(r.path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		log.Warnf("收件人文件 %s 暂不可读，仍然监听: %v", r.path, err)
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return
		}
		if err := r.reload(); err != nil {
			log.Warnf("重载收件人文件失败 %s: %v", r.path, err)
			return
		}
		log.Infof("收件人列表已更新: %d 个", len(r.List()))
	})
	v.WatchConfig()
	r.watcher = v
	log.Infof("监听收件人文件 %s", r.path)
}

func (r *Registry) reload() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return err
	}
	var file recipientsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("解析收件人文件: %w", err)
	}
	list := cleanAddresses(file.Recipients)
	r.mu.Lock()
	r.fromFile = list
	r.mu.Unlock()
	return nil
}

func cleanAddresses(list []string) []string {
	out := make([]string, 0, len(list))
	seen := make(map[string]bool, len(list))
	for _, raw := range list {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		addr, err := mail.ParseAddress(raw)
		if err != nil {
			log.Warnf("忽略无效收件人 %q: %v", raw, err)
			continue
		}
		key := strings.ToLower(addr.Address)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, addr.Address)
	}
	return out
}
