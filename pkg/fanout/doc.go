// Package fanout computes several independent fields of one base amount
// concurrently and joins them into a single record.
//
// Each field is a pure function of the base amount, so the joined values
// do not depend on dispatch or completion order. Derive waits for every
// field before joining; there are no partial joins.
//
//	c, err := fanout.New([]fanout.Field{
//		{Name: "double", Fn: func(b float64) float64 { return b * 2 }},
//		{Name: "half", Fn: func(b float64) float64 { return b / 2 }},
//	})
//	fields, err := c.Derive(ctx, 10)
//	fields.Values["double"] // 20
package fanout
