/*
Package attr converts attribute values between their native Go form and
the DynamoDB attribute values they are stored as.

A Descriptor declares one attribute, either as a primitive Type or as a
Validator. Every descriptor resolves to exactly one Shape:

	attr.Of(attr.Integer)                                     // N
	attr.Of(attr.TextSet)                                     // SS
	attr.Of(attr.Map)                                         // S, canonical JSON
	attr.Of(attr.Timestamp)                                   // S, 2012-05-31T12:00:00.000000+00:00
	attr.Validated(attr.All(attr.Coerce(attr.Text), attr.Length(3, 15)))
	attr.Validated(attr.ListOf(attr.InRange(0, 100)))

Encoding never writes empty text or empty sets; those attributes are left
absent and decode back to their empty value. Numeric zero and false are
stored. Booleans are stored as the numbers 0 and 1.

For every legally typed value v:

	Decode(d, Encode(d, v)) == v
*/
package attr
