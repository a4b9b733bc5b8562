// Package skills contains ready to import native skills.
//
// Every skill implements function.NativeSkill and is registered with
// Kernel.ImportSkill:
//
//	k.ImportSkill("text", skills.TextSkill{})
//	k.ImportSkill("time", skills.NewTimeSkill())
//
// Functions can then be called from templates, e.g. {{text.uppercase $input}}
// or {{time.today}}.
package skills
