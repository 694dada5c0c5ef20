// Package harness runs recovery scenarios end to end against a fresh store.
//
// A scenario seeds sales channels, customers, carts, promotions and mail
// templates, installs rules, runs one or more automation sweeps and then
// checks the resulting database state.
//
// # Scenario Format
//
//	name: first_reminder
//	description: "Carts older than an hour get one reminder"
//	now: "2026-03-10T12:00:00Z"
//	rules:
//	  - id: reminder
//	    priority: 10
//	    conditions:
//	      - { type: cart_age, operator: gte, value: 1, unit: hours }
//	    actions:
//	      - { type: send_email, mailTemplateId: reminder-mail }
//	seed:
//	  customers:
//	    - { id: cust-1, email: ada@example.com, first_name: Ada }
//	  carts:
//	    - { id: cart-a, customer: cust-1, channel: web, total: "89.90", age: 2h }
//	passes:
//	  - {}
//	  - { advance: 24h }
//	assertions:
//	  - { type: log_count, rule: reminder, count: 1 }
//
// Rules may also come from a CUE file (rules_file, relative to the
// scenario) in the same format the rules import command reads.
//
// # Assertion Types
//
//   - log_count: number of execution logs, filtered by rule, cart and status
//   - action_result: status of one pipeline step in the newest log of a cart
//   - cart_state: automation counter of a cart and whether it was stamped
//   - outbox_count: number of queued mails, optionally per template
//   - outbox_subject: rendered subject of the first mail for a template
//   - customer_tags: exact tag set of a customer
//   - custom_field: one custom field value of a customer
//   - voucher_count: number of codes generated for a promotion
//   - voucher_code: one of the generated codes equals the given code
//
// # Deterministic Testing
//
// Every run uses a manual clock starting at the scenario's now, sequential
// row IDs ("id-1", "id-2", ...) and a voucher generator that always draws
// the first letter and digit, so traces are byte-identical across runs and
// can be compared against golden files.
package harness
