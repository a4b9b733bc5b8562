// Package planning turns a free-form goal into an XML plan of function
// calls and executes it one step at a time.
//
// A plan looks like this:
//
//	<goal>
//	Summarize the input, then translate it to French
//	</goal>
//	<plan>
//	  <function.WriterSkill.Summarize/>
//	  <function.LanguageHelpers.TranslateTo translate_to_language="French" appendToResult="RESULT__TRANSLATION"/>
//	</plan>
//
// Planner.CreatePlan asks the completion backend for the markup.
// Planner.ExecuteStep runs the first remaining function element and removes
// it from the markup, so the caller decides how many steps to run. Plan
// failures never surface as Go errors from ExecuteStep: a plan that cannot
// be parsed or has no goal becomes complete and unsuccessful with a
// diagnostic in Result.
package planning
