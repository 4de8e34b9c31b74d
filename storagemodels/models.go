/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Payload is a stored item: attribute name to attribute value.
type Payload = map[string]types.AttributeValue

// Key holds the hash key, and range key if any, of an item.
type Key = map[string]types.AttributeValue

// Expectation is one entry of a conditional write. When Exists is false the
// attribute must be absent; otherwise it must equal Value.
type Expectation struct {
	Exists bool
	Value  types.AttributeValue
}

// Expected is the full set of conditions for a write. A nil Expected means
// the write is unconditional.
type Expected map[string]Expectation

// MustExist expects the attribute to be stored with exactly this value.
func MustExist(v types.AttributeValue) Expectation {
	return Expectation{Exists: true, Value: v}
}

// MustBeAbsent expects the attribute not to be stored.
func MustBeAbsent() Expectation {
	return Expectation{}
}

// Operator is a comparison used in range key conditions and scan filters.
type Operator string

const (
	OpEQ          Operator = "EQ"
	OpNE          Operator = "NE"
	OpLE          Operator = "LE"
	OpLT          Operator = "LT"
	OpGE          Operator = "GE"
	OpGT          Operator = "GT"
	OpBeginsWith  Operator = "BEGINS_WITH"
	OpBetween     Operator = "BETWEEN"
	OpNotNull     Operator = "NOT_NULL"
	OpNull        Operator = "NULL"
	OpContains    Operator = "CONTAINS"
	OpNotContains Operator = "NOT_CONTAINS"
	OpIn          Operator = "IN"
)

// QueryOperators are the operators allowed on a range key.
var QueryOperators = map[Operator]bool{
	OpEQ: true, OpLE: true, OpLT: true, OpGE: true, OpGT: true, OpBeginsWith: true, OpBetween: true,
}

// FilterOperators are the operators allowed in scan filters.
var FilterOperators = map[Operator]bool{
	OpEQ: true, OpNE: true, OpLE: true, OpLT: true, OpGE: true, OpGT: true,
	OpNotNull: true, OpNull: true, OpContains: true, OpNotContains: true,
	OpBeginsWith: true, OpIn: true, OpBetween: true,
}

// Condition compares an attribute against already encoded values. BETWEEN
// takes two values, IN any number, NULL and NOT_NULL none.
type Condition struct {
	Attribute string
	Operator  Operator
	Values    []types.AttributeValue
}

// QueryParams defines parameters for a key query.
type QueryParams struct {
	// TableName is the DynamoDB table name.
	TableName string
	// HashKeyName and HashKey select the partition.
	HashKeyName string
	HashKey     types.AttributeValue
	// RangeCondition optionally restricts the range key.
	RangeCondition *Condition
	// ConsistentRead requests strongly consistent reads.
	ConsistentRead bool
	// Descending reverses the range key order.
	Descending bool
	// Limit caps the number of items returned, 0 means no limit.
	Limit int32
}

// ScanParams defines parameters for a full table scan.
type ScanParams struct {
	TableName string
	// Filters are ANDed together.
	Filters []Condition
	// Limit caps the number of items returned, 0 means no limit.
	Limit int32
}

// KeyAttribute describes one key column when provisioning a table.
type KeyAttribute struct {
	Name string
	// Type is the DynamoDB scalar type letter: "S", "N" or "B".
	Type string
}

// TableDefinition is what a store needs to create a table.
type TableDefinition struct {
	TableName     string
	HashKey       KeyAttribute
	RangeKey      *KeyAttribute
	ReadCapacity  int64
	WriteCapacity int64
	// WaitForActive blocks until the table accepts traffic.
	WaitForActive bool
}
