// Package paxml is an embeddable runtime for the Paxml tag scripting language.
//
// Scripts are trees of tags grouped into entities. The runtime executes those
// trees against a hierarchical Context that holds script constants, private
// engine state, the active call stack and an ambient "current context" handle.
//
// # Basic Usage
//
// Build an entity and execute it with an engine:
//
//	engine := paxml.MustNew()
//	entity, err := paxml.NewEntityBuilder("greet", engine.Registry()).
//	    Open("iterate").Attr("list", "${people}").Attr("var", "p").
//	    Open("data").Text("Hello ${p}").Close().
//	    Close().
//	    Build()
//	if err != nil {
//	    return err
//	}
//	engine.Add(entity)
//	result, err := engine.Run(ctx, "greet", map[string]any{
//	    "people": []any{"Alice", "Bob"},
//	})
//	// result: paxml.ResultList{"Hello Alice", "Hello Bob"}
//
// # Expressions
//
// Attribute values and text bodies are templates. Literal text may contain
// two kinds of evaluable parts:
//
//	${name}   strict: an unresolved root name is an error
//	?{name}   lenient: an unresolved root name evaluates to nil
//
// Write $${ or $?{ to emit the markers literally. A template made of a single
// evaluable part evaluates to the native value; anything else concatenates
// as a string.
//
// # Control Tags
//
// The core library provides if, else, iterate and mutex plus the scalar tags
// const, data, expression, call, param, return, exit and print. Every tag
// supports the if and unless condition attributes unless its descriptor says
// otherwise.
//
// # Custom Tags
//
// Implement Behavior and register a TagDescriptor through a TagLibrary:
//
//	type echo struct{}
//
//	func (echo) Execute(ctx *paxml.Context, tag *paxml.Tag) (any, error) {
//	    return tag.Eval(ctx, "value")
//	}
//
//	engine.MustRegisterTag(paxml.TagDescriptor{
//	    Name:       "echo",
//	    New:        func() paxml.Behavior { return echo{} },
//	    IfAttr:     paxml.AttrIf,
//	    UnlessAttr: paxml.AttrUnless,
//	    SupportsID: true,
//	})
package paxml

// Version is the library version
const Version = "0.4.0"
