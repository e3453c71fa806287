package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag ties a CLI flag to the config key it overrides.
type Flag struct {
	Name        string
	Shorthand   string
	ViperKey    string
	Description string
}

// FlagSet maps registry keys to flag definitions.
type FlagSet map[string]Flag

const (
	FlagListen      = "listen"
	FlagUpstream    = "upstream"
	FlagTimeout     = "timeout"
	FlagCredentials = "credentials"
	FlagLogLevel    = "log-level"
	FlagLogFormat   = "log-format"
)

// ServeFlags are the flags accepted by the serve command.
var ServeFlags = FlagSet{
	FlagListen:      {Name: "listen", Shorthand: "l", ViperKey: "server.listen", Description: "Address to listen on"},
	FlagUpstream:    {Name: "upstream", Shorthand: "u", ViperKey: "upstream.base_url", Description: "Upstream API base URL"},
	FlagTimeout:     {Name: "timeout", ViperKey: "upstream.timeout", Description: "Upstream timeout: idle gap for streams, total for buffered requests"},
	FlagCredentials: {Name: "credentials", ViperKey: "credentials.source", Description: "API key source: env, file or keychain"},
	FlagLogLevel:    {Name: "log-level", ViperKey: "log.level", Description: "Log level (debug, info, warn, error)"},
	FlagLogFormat:   {Name: "log-format", ViperKey: "log.format", Description: "Log format (console or json)"},
}

// AddStringFlag registers a string flag from fs with its default taken from
// the config defaults.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string) {
	def, ok := fs[key]
	if !ok {
		return
	}
	v := viper.New()
	setViperDefaults(v)
	cmd.Flags().StringP(def.Name, def.Shorthand, v.GetString(def.ViperKey), def.Description)
}

// AddDurationFlag registers a duration flag from fs.
func AddDurationFlag(cmd *cobra.Command, fs FlagSet, key string) {
	def, ok := fs[key]
	if !ok {
		return
	}
	v := viper.New()
	setViperDefaults(v)
	cmd.Flags().DurationP(def.Name, def.Shorthand, v.GetDuration(def.ViperKey), def.Description)
}

// BindRegisteredFlags binds already-registered flags to v so that a flag set
// on the command line wins over env, file and defaults.
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, keys []string) {
	for _, key := range keys {
		def, ok := fs[key]
		if !ok {
			continue
		}
		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}
		_ = v.BindPFlag(def.ViperKey, f)
	}
}
