// Package schema loads layout declarations from YAML and converts record
// values to and from YAML.
//
// A schema file lists layouts in dependency order:
//
//	layouts:
//	  - name: Packet
//	    fields:
//	      - name: tlen
//	        type: uint
//	      - name: text
//	        type: string
//	        length: tlen
//	      - name: flag
//	        type: ubyte
//	        prefix__omit: "hex:01"
//
// The keys name, type, default, index, element and layout describe the
// field itself. Every other key is a layout option, and the __omit suffix
// makes it omit-on-failure. Byte strings starting with "hex:" are hex
// encoded.
package schema
