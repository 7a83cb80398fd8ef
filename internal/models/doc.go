// Package models defines the core domain models for famsplit.
//
// # Entities
//
//   - Family: the billing group sharing a recurring bill
//   - User: a manager or member account, optionally bound to one Family
//   - Bill: one billing cycle for a Family with a total amount
//   - BillItem: a surcharge or shared line item attached to a Bill
//   - Payment: settlement of a BillItem by a member (append-only)
//   - Invitation: a pending or accepted invite binding an email to a Family
//   - NotificationLog: the durable record of a notification attempt
//
// # Conventions
//
//  1. IDs are UUID strings generated by the store when left empty.
//  2. Timestamps are Unix seconds; zero means "not set".
//  3. Relationships use ID strings, never pointers.
//  4. Money is decimal.Decimal with two decimal places at rest.
package models
