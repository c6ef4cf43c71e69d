package model

import _ "embed"

//go:embed protocols.yaml
var defaultProtocolsYAML []byte
