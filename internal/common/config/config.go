package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Backend  Backend
	Source   Source
	Auth     Auth
	API      API
	Journal  Journal
	RabbitMQ RabbitMQ

	// Optional sections are wired only when present in the file.
	HasJournal  bool
	HasRabbitMQ bool
}

type Backend struct {
	BaseURL        string
	TimeoutSeconds int
}

type Source struct {
	URL string
}

type Auth struct {
	TokenPath string
}

type API struct {
	Port int
}

type Journal struct {
	Path string
}

type RabbitMQ struct {
	Host     string
	Port     int
	User     string
	Password string
}

func Load(cfgPath string) (*Config, error) {
	f, err := os.Open(cfgPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var (
		lineNo      int
		section     string
		cfg         Config
		seenBackend = make(map[string]bool)
		seenSource  = make(map[string]bool)
		seenAuth    = make(map[string]bool)
		seenAPI     = make(map[string]bool)
		seenJournal = make(map[string]bool)
		seenRMQ     = make(map[string]bool)
	)

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasSuffix(line, ":") && !strings.Contains(line, " ") {
			sec := strings.TrimSuffix(line, ":")
			switch sec {
			case "backend", "source", "auth", "api", "journal", "rabbitmq":
				section = sec
			default:
				return nil, fmt.Errorf("line %d: unknown section %s", lineNo, sec)
			}
			continue
		}

		if section == "" {
			return nil, fmt.Errorf("line %d: key outside of any section", lineNo)
		}

		k, v, ok := splitKV(line)
		if !ok {
			return nil, fmt.Errorf("line %d: expected 'key: value'", lineNo)
		}

		v = trimQuotes(v)
		switch section {
		case "backend":
			if seenBackend[k] {
				return nil, fmt.Errorf("line %d: duplicate key %q in [backend]", lineNo, k)
			}
			seenBackend[k] = true
			switch k {
			case "base_url":
				cfg.Backend.BaseURL = v
			case "timeout_seconds":
				t, err := strconv.Atoi(v)
				if err != nil {
					return nil, fmt.Errorf("line %d: backend.timeout_seconds must be int: %w", lineNo, err)
				}
				cfg.Backend.TimeoutSeconds = t
			default:
				return nil, fmt.Errorf("line %d: unknown field for [backend]: %q", lineNo, k)
			}

		case "source":
			if seenSource[k] {
				return nil, fmt.Errorf("line %d: duplicate key %q in [source]", lineNo, k)
			}
			seenSource[k] = true
			switch k {
			case "url":
				cfg.Source.URL = v
			default:
				return nil, fmt.Errorf("line %d: unknown field for [source]: %q", lineNo, k)
			}

		case "auth":
			if seenAuth[k] {
				return nil, fmt.Errorf("line %d: duplicate key %q in [auth]", lineNo, k)
			}
			seenAuth[k] = true
			switch k {
			case "token_path":
				cfg.Auth.TokenPath = v
			default:
				return nil, fmt.Errorf("line %d: unknown field for [auth]: %q", lineNo, k)
			}

		case "api":
			if seenAPI[k] {
				return nil, fmt.Errorf("line %d: duplicate key %q in [api]", lineNo, k)
			}
			seenAPI[k] = true
			switch k {
			case "port":
				p, err := strconv.Atoi(v)
				if err != nil {
					return nil, fmt.Errorf("line %d: api.port must be int: %w", lineNo, err)
				}
				cfg.API.Port = p
			default:
				return nil, fmt.Errorf("line %d: unknown field for [api]: %q", lineNo, k)
			}

		case "journal":
			cfg.HasJournal = true
			if seenJournal[k] {
				return nil, fmt.Errorf("line %d: duplicate key %q in [journal]", lineNo, k)
			}
			seenJournal[k] = true
			switch k {
			case "path":
				cfg.Journal.Path = v
			default:
				return nil, fmt.Errorf("line %d: unknown field for [journal]: %q", lineNo, k)
			}

		case "rabbitmq":
			cfg.HasRabbitMQ = true
			if seenRMQ[k] {
				return nil, fmt.Errorf("line %d: duplicate key %q in [rabbitmq]", lineNo, k)
			}
			seenRMQ[k] = true
			switch k {
			case "host":
				cfg.RabbitMQ.Host = v
			case "port":
				p, err := strconv.Atoi(v)
				if err != nil {
					return nil, fmt.Errorf("line %d: rabbitmq.port must be int: %w", lineNo, err)
				}
				cfg.RabbitMQ.Port = p
			case "user":
				cfg.RabbitMQ.User = v
			case "password":
				cfg.RabbitMQ.Password = v
			default:
				return nil, fmt.Errorf("line %d: unknown field for [rabbitmq]: %q", lineNo, k)
			}
		}
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan config: %w", err)
	}

	if err := ensureRequired(seenBackend, []string{"base_url"}, "backend"); err != nil {
		return nil, err
	}
	if err := ensureRequired(seenSource, []string{"url"}, "source"); err != nil {
		return nil, err
	}
	if err := ensureRequired(seenAuth, []string{"token_path"}, "auth"); err != nil {
		return nil, err
	}
	if err := ensureRequired(seenAPI, []string{"port"}, "api"); err != nil {
		return nil, err
	}
	if cfg.HasJournal {
		if err := ensureRequired(seenJournal, []string{"path"}, "journal"); err != nil {
			return nil, err
		}
	}
	if cfg.HasRabbitMQ {
		if err := ensureRequired(seenRMQ, []string{"host", "port", "user", "password"}, "rabbitmq"); err != nil {
			return nil, err
		}
	}

	if cfg.Backend.TimeoutSeconds <= 0 {
		cfg.Backend.TimeoutSeconds = 15
	}

	return &cfg, nil
}

func splitKV(line string) (key, val string, ok bool) {
	i := strings.IndexRune(line, ':')
	if i <= 0 {
		return "", "", false
	}
	key = strings.TrimSpace(line[:i])
	val = strings.TrimSpace(line[i+1:])
	if key == "" || val == "" {
		return "", "", false
	}
	return key, val, true
}

func trimQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') ||
			(s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

func ensureRequired(seen map[string]bool, required []string, section string) error {
	var missing []string
	for _, k := range required {
		if !seen[k] {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return errors.New("missing required keys in [" + section + "]: " + strings.Join(missing, ", "))
	}
	return nil
}
