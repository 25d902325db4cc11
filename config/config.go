// Package config discovers the program's configuration from a flat list
// of positional command-line tokens, classified by shape, with an
// optional TOML file overlay for the same fields.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/ChristianF88/logarchivist/certutil"
	"github.com/ChristianF88/logarchivist/esclient"
)

const defaultBulkSize = 500

// Config is the fully resolved, immutable program configuration.
type Config struct {
	Endpoint         *esclient.Endpoint
	LogSources       []string
	ListenAddrs      []string
	ArchiveDir       string
	Prefix           string
	BulkSize         int
	ArchiveAfterDays int
}

// fileConfig mirrors Config for optional TOML overlay, every field
// optional so positional discovery still drives unset fields.
type fileConfig struct {
	Endpoint         string   `toml:"endpoint"`
	LogSources       []string `toml:"log_sources"`
	ListenAddrs      []string `toml:"listen_addrs"`
	ArchiveDir       string   `toml:"archive_dir"`
	Prefix           string   `toml:"prefix"`
	BulkSize         int      `toml:"bulk_size"`
	ArchiveAfterDays int      `toml:"archive_after_days"`
	TrustAnchor      string   `toml:"trust_anchor"`
}

// Discover classifies each positional argument by shape per the external
// interface: directory -> archive dir, PEM file -> trust anchor, other
// existing file -> log source, "lumberjack://host:port" -> a network
// listen address, URL shape -> endpoint, unsigned integer -> bulk size,
// otherwise -> archive file prefix. configPath, if non-empty, is parsed as
// an optional TOML overlay and merged under the positional values
// (positional arguments win on conflict).
func Discover(args []string, configPath string) (*Config, error) {
	cfg := &Config{BulkSize: defaultBulkSize, Prefix: "weblogs"}

	if configPath != "" {
		if err := mergeFile(cfg, configPath); err != nil {
			return nil, err
		}
	}

	var archiveDirSet, prefixSet, endpointSet, bulkSizeSet bool
	var pendingTrustAnchor *certutil.Certificate

	for _, token := range args {
		switch {
		case isDir(token):
			if !archiveDirSet {
				cfg.ArchiveDir = token
				archiveDirSet = true
			}
		case isPEMFile(token):
			cert, err := certutil.LoadPEM(token)
			if err != nil {
				return nil, fmt.Errorf("loading trust anchor %s: %w", token, err)
			}
			pendingTrustAnchor = cert
			if cfg.Endpoint != nil {
				cfg.Endpoint.TrustAnchor = cert
			}
		case isFile(token):
			cfg.LogSources = append(cfg.LogSources, token)
		case isLumberjackAddr(token):
			cfg.ListenAddrs = append(cfg.ListenAddrs, strings.TrimPrefix(token, "lumberjack://"))
		case looksLikeURL(token):
			if !endpointSet {
				ep, err := esclient.ParseEndpoint(token)
				if err != nil {
					return nil, fmt.Errorf("parsing endpoint %s: %w", token, err)
				}
				if pendingTrustAnchor != nil {
					ep.TrustAnchor = pendingTrustAnchor
				}
				cfg.Endpoint = ep
				endpointSet = true
			}
		case isUnsignedInt(token):
			if !bulkSizeSet {
				n, _ := strconv.Atoi(token)
				cfg.BulkSize = n
				bulkSizeSet = true
			}
		default:
			if !prefixSet {
				cfg.Prefix = token
				prefixSet = true
			}
		}
	}

	if cfg.Endpoint == nil {
		return nil, fmt.Errorf("no endpoint configured: provide a scheme://[user[:pass]@]host[:port]/index argument")
	}
	if len(cfg.LogSources) == 0 && len(cfg.ListenAddrs) == 0 && cfg.ArchiveDir == "" {
		return nil, fmt.Errorf("no log sources, no listen addresses, and no archive directory configured: the program would serve no purpose")
	}
	return cfg, nil
}

func mergeFile(cfg *Config, path string) error {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if fc.Endpoint != "" {
		ep, err := esclient.ParseEndpoint(fc.Endpoint)
		if err != nil {
			return fmt.Errorf("parsing endpoint in config file: %w", err)
		}
		if fc.TrustAnchor != "" {
			cert, err := certutil.LoadPEM(fc.TrustAnchor)
			if err != nil {
				return fmt.Errorf("loading trust anchor from config file: %w", err)
			}
			ep.TrustAnchor = cert
		}
		cfg.Endpoint = ep
	}
	cfg.LogSources = append(cfg.LogSources, fc.LogSources...)
	cfg.ListenAddrs = append(cfg.ListenAddrs, fc.ListenAddrs...)
	if fc.ArchiveDir != "" {
		cfg.ArchiveDir = fc.ArchiveDir
	}
	if fc.Prefix != "" {
		cfg.Prefix = fc.Prefix
	}
	if fc.BulkSize > 0 {
		cfg.BulkSize = fc.BulkSize
	}
	if fc.ArchiveAfterDays > 0 {
		cfg.ArchiveAfterDays = fc.ArchiveAfterDays
	}
	return nil
}

func isDir(token string) bool {
	info, err := os.Stat(token)
	return err == nil && info.IsDir()
}

func isFile(token string) bool {
	info, err := os.Stat(token)
	return err == nil && !info.IsDir()
}

func isPEMFile(token string) bool {
	if !isFile(token) {
		return false
	}
	data, err := os.ReadFile(token)
	if err != nil {
		return false
	}
	return strings.Contains(string(data), "-----BEGIN CERTIFICATE-----")
}

func looksLikeURL(token string) bool {
	idx := strings.Index(token, "://")
	return idx > 0
}

func isLumberjackAddr(token string) bool {
	return strings.HasPrefix(token, "lumberjack://")
}

func isUnsignedInt(token string) bool {
	if token == "" {
		return false
	}
	for _, r := range token {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
