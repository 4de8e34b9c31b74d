/*
Package registry loads record kind declarations from YAML files.

A file lists kinds; each attribute is either a bare type name or a mapping
of a type plus constraints:

	kinds:
	  - name: User
	    table: users
	    hashKey: id
	    attributes:
	      id: autoincrement
	      email: {format: email}
	      nick: {type: text, minLength: 3, maxLength: 15}
	      level: {type: integer, min: 0, default: 1}
	      token: {type: text, generate: uuid}
	      tags: textset

Constraints turn the attribute into a validator chain: the type coercion
first, then format, match, length, bounds, oneOf and finally any validator
registered in code with RegisterValidator and named in the file:

	registry.RegisterValidator("nickname", attr.Match(`^[a-z0-9_]+$`))

	      nick: {type: text, validator: nickname}

Defaults are constants copied into every new entity; generate: uuid draws a
fresh UUID instead.
*/
package registry
