package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvPrefix 是可覆盖配置项的环境变量前缀，例如 NIFTYFIB_NOTIFY_SMTP_PASSWORD。
const EnvPrefix = "NIFTYFIB"

// secretKeys 允许通过环境变量注入，避免把口令写进配置文件。
var secretKeys = []string{
	"notify.smtp.username",
	"notify.smtp.password",
	"notify.smtp.host",
	"notify.smtp.from",
}

// Load 读取 path 及其 include 的文件（被包含者先合并，主文件最后覆盖），
// 再应用默认值与校验。
func Load(path string) (*Config, error) {
	files, err := resolveConfigFiles(path)
	if err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetConfigType("yaml")
	for _, file := range files {
		if err := mergeConfigFile(v, file); err != nil {
			return nil, fmt.Errorf("reading config file failed (%s): %w", file, err)
		}
	}
	// 须在绑定环境变量之前收集，只记录文件中出现过的键。
	setKeys := make(keySet)
	for _, key := range v.AllKeys() {
		setKeys.mark(key)
	}
	bindSecretEnv(v)
	return decode(v, setKeys)
}

// Default 返回仅包含默认值的配置（未读取任何文件），主要用于测试与本地试跑。
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults(make(keySet))
	return cfg
}

func decode(v *viper.Viper, setKeys keySet) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	cfg.applyDefaults(setKeys)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func bindSecretEnv(v *viper.Viper) {
	for _, key := range secretKeys {
		env := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(key, env)
	}
}

func mergeConfigFile(v *viper.Viper, path string) error {
	tmp := viper.New()
	tmp.SetConfigFile(path)
	if err := tmp.ReadInConfig(); err != nil {
		return err
	}
	return v.MergeConfigMap(tmp.AllSettings())
}

// includeWalker 深度优先展开 include，order 为合并顺序。
type includeWalker struct {
	visiting map[string]bool
	done     map[string]bool
	order    []string
}

func resolveConfigFiles(path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("config path cannot be empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w := &includeWalker{visiting: map[string]bool{}, done: map[string]bool{}}
	if err := w.visit(abs); err != nil {
		return nil, err
	}
	return w.order, nil
}

func (w *includeWalker) visit(path string) error {
	path = filepath.Clean(path)
	if w.visiting[path] {
		return fmt.Errorf("include cycle detected: %s", path)
	}
	if w.done[path] {
		return nil
	}
	w.visiting[path] = true
	includes, err := readIncludes(path)
	if err != nil {
		return fmt.Errorf("parsing include failed (%s): %w", path, err)
	}
	for _, inc := range includes {
		if !filepath.IsAbs(inc) {
			inc = filepath.Join(filepath.Dir(path), inc)
		}
		if err := w.visit(inc); err != nil {
			return err
		}
	}
	delete(w.visiting, path)
	w.done[path] = true
	w.order = append(w.order, path)
	return nil
}

// readIncludes 读取顶层 include，支持单个文件名或文件名列表。
func readIncludes(path string) ([]string, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var items []any
	switch raw := v.Get("include").(type) {
	case nil:
		return nil, nil
	case string:
		items = []any{raw}
	case []any:
		items = raw
	default:
		return nil, fmt.Errorf("include must be a file name or a list of file names, got %T", raw)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		name, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("include entries must be strings, got %T", item)
		}
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out, nil
}
