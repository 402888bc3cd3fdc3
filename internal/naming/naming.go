// Package naming centralizes the generated GraphQL names. Every derived
// type and root field name flows through here so that schema generation and
// resolvers agree, and so the convention lives in exactly one place.
//
// Model names are used verbatim: the object type for table "author" is
// "author" and its list field is "author". Derived names append fixed
// suffixes or prefixes in snake_case.
package naming

// Object type and input type names derived from a model name.

// BoolExp names the boolean filter input for a model.
func BoolExp(model string) string { return model + "_bool_exp" }

// OrderBy names the ordering input for a model.
func OrderBy(model string) string { return model + "_order_by" }

// InsertInput names the full-row insert input for a model.
func InsertInput(model string) string { return model + "_insert_input" }

// SetInput names the column-assignment input used by updates.
func SetInput(model string) string { return model + "_set_input" }

// IncInput names the numeric-increment input used by updates.
func IncInput(model string) string { return model + "_inc_input" }

// OnConflict names the conflict-handling input used by inserts.
func OnConflict(model string) string { return model + "_on_conflict" }

// MutationResponse names the affected_rows/returning envelope for a model.
func MutationResponse(model string) string { return model + "_mutation_response" }

// Comparison names the per-scalar comparison input, e.g. "Int_comparison_exp".
func Comparison(scalar string) string { return scalar + "_comparison_exp" }

// Root field names derived from a model name.

// Query names the root list query field for a model.
func Query(model string) string { return model }

// ByPK names the root single-row query field for a model.
func ByPK(model string) string { return model + "_by_pk" }

// Insert names the root multi-row insert field for a model.
func Insert(model string) string { return "insert_" + model }

// InsertOne names the root single-row insert field for a model.
func InsertOne(model string) string { return "insert_" + model + "_one" }

// Update names the root filtered update field for a model.
func Update(model string) string { return "update_" + model }

// UpdateByPK names the root single-row update field for a model.
func UpdateByPK(model string) string { return "update_" + model + "_by_pk" }

// Delete names the root filtered delete field for a model.
func Delete(model string) string { return "delete_" + model }

// DeleteByPK names the root single-row delete field for a model.
func DeleteByPK(model string) string { return "delete_" + model + "_by_pk" }
