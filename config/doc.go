// Package config loads querysync client settings with viper.
//
// Settings come from built-in defaults, an optional YAML/JSON/TOML file and
// QUERYSYNC_* environment variables, in increasing priority. Credential
// fields (api.token, auth.signing_key, api.headers values) may use ${VAR}
// and secretref: references, resolved by package secret.
//
//	api:
//	  base_url: https://example.org/api
//	  token: secretref:env:QUERYSYNC_TOKEN
//	cache:
//	  gc_time: 10m
//	resilience:
//	  retry:
//	    enabled: true
package config
