// Package config loads promptkb settings.
//
// Values resolve in order: built-in defaults, the YAML file
// (~/.promptkb/config.yaml unless --config is given), PROMPTKB_* environment
// variables, then command-line flags. A missing file is not an error.
//
//	db_path: ~/.promptkb/promptkb.db
//	llm:
//	  provider: openai
//	  model: gpt-4o-mini
//	  rate_limit: 2
//	embedding:
//	  provider: local
//	search:
//	  default_limit: 20
//	  lexical_weight: 0.6
//	  semantic_weight: 0.4
//	  type_preferences:
//	    - category: spreadsheet
//	      keywords: [excel, spreadsheet, 表格]
package config
