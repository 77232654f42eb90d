// Package relay implements the background side of the page integration.
//
// Pages send "show" and "hide" messages to toggle their indicator and are
// always acknowledged with {"result": true}. When a page that has talked to
// the relay finishes navigating, the relay tells it to re-attach with an
// "attach" message.
//
// # Wire Format
//
// Serve speaks line-delimited JSON. Each inbound line is an Envelope:
//
//	{"type":"message","id":7,"tab_id":3,"message":{"action":"show"}}
//	{"type":"tab_updated","tab_id":3,"status":"complete"}
//	{"type":"tab_removed","tab_id":3}
//
// and produces zero or one outbound line:
//
//	{"type":"response","id":7,"tab_id":3,"response":{"result":true}}
//	{"type":"notify","tab_id":3,"message":{"action":"attach"}}
package relay
