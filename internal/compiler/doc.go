// Package compiler turns CUE rule files into automation rules and checks
// them against the registered condition and action types.
//
// A rule file declares rules under the top-level "automation" struct:
//
//	automation: "first-reminder": {
//		priority: 100
//		conditions: [{type: "cart_age", operator: "gte", value: 2, unit: "hours"}]
//		actions: [{type: "send_email", mailTemplateId: "tpl-1"}]
//	}
//
// The label is the rule ID unless an explicit id field is given.
package compiler
