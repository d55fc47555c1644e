package main

import (
	"fmt"

	"folio/internal/app"

	"github.com/spf13/cobra"
)

var pageCmd = &cobra.Command{
	Use:   "page",
	Short: "Manage pages",
}

var pageCreateCmd = &cobra.Command{
	Use:   "create SLUG",
	Short: "Create a page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		parent, _ := cmd.Flags().GetString("parent")
		template, _ := cmd.Flags().GetString("template")
		draft, _ := cmd.Flags().GetBool("draft")
		pairs, _ := cmd.Flags().GetStringArray("field")
		content, err := parseFields(pairs)
		if err != nil {
			return err
		}

		in := app.PageInput{Parent: parent, Slug: args[0], Template: template, Draft: draft, Content: content}
		if cmd.Flags().Changed("num") {
			n, _ := cmd.Flags().GetInt("num")
			in.Num = &n
		}

		a, err := newApp(cmd, "CreatePage")
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.CreatePage(in)
		if err != nil {
			return err
		}
		fmt.Printf("Created %s (%s)\n", p.ID(), p.Status())
		return nil
	},
}

var pageUpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Update page fields",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pairs, _ := cmd.Flags().GetStringArray("field")
		values, err := parseFields(pairs)
		if err != nil {
			return err
		}
		if len(values) == 0 {
			return fmt.Errorf("nothing to update: pass --field key=value")
		}
		lang, _ := cmd.Flags().GetString("lang")

		a, err := newApp(cmd, "UpdatePage")
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.UpdatePage(args[0], values, lang)
		if err != nil {
			return err
		}
		fmt.Printf("Updated %s\n", p.ID())
		return nil
	},
}

var pageSlugCmd = &cobra.Command{
	Use:   "slug ID SLUG",
	Short: "Change the slug of a page",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		lang, _ := cmd.Flags().GetString("lang")

		a, err := newApp(cmd, "ChangePageSlug")
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.ChangePageSlug(args[0], args[1], lang)
		if err != nil {
			return err
		}
		fmt.Printf("Renamed %s to %s\n", args[0], p.ID())
		return nil
	},
}

var pageStatusCmd = &cobra.Command{
	Use:   "status ID draft|unlisted|listed",
	Short: "Change the status of a page",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var position *int
		if cmd.Flags().Changed("position") {
			n, _ := cmd.Flags().GetInt("position")
			position = &n
		}

		a, err := newApp(cmd, "ChangePageStatus")
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.ChangePageStatus(args[0], args[1], position)
		if err != nil {
			return err
		}
		fmt.Printf("%s is now %s\n", p.ID(), p.Status())
		return nil
	},
}

var pageTitleCmd = &cobra.Command{
	Use:   "title ID TITLE",
	Short: "Change the title of a page",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		lang, _ := cmd.Flags().GetString("lang")

		a, err := newApp(cmd, "ChangePageTitle")
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.ChangePageTitle(args[0], args[1], lang)
		if err != nil {
			return err
		}
		fmt.Printf("Retitled %s\n", p.ID())
		return nil
	},
}

var pageTemplateCmd = &cobra.Command{
	Use:   "template ID TEMPLATE",
	Short: "Convert a page to another template",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ChangePageTemplate")
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.ChangePageTemplate(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("%s now uses %s\n", p.ID(), p.Template())
		return nil
	},
}

var pageDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		if err := confirm(cmd, "delete page "+args[0]); err != nil {
			return err
		}

		a, err := newApp(cmd, "DeletePage")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DeletePage(args[0], force); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

var pageGetCmd = &cobra.Command{
	Use:   "get ID|UUID",
	Short: "Show a page or any model by uuid",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Find")
		if err != nil {
			return err
		}
		defer a.Close()

		m, err := a.Find(args[0])
		if err != nil {
			return err
		}
		return printModel(cmd.OutOrStdout(), m)
	},
}

var pageListCmd = &cobra.Command{
	Use:   "list [PARENT]",
	Short: "List pages",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		drafts, _ := cmd.Flags().GetBool("drafts")
		parent := ""
		if len(args) > 0 {
			parent = args[0]
		}

		a, err := newApp(cmd, "ListPages")
		if err != nil {
			return err
		}
		defer a.Close()

		pages, err := a.ListPages(parent, drafts)
		if err != nil {
			return err
		}
		if len(pages) == 0 {
			fmt.Println("No pages.")
			return nil
		}
		for _, p := range pages {
			num := "-"
			if p.Num() != nil {
				num = fmt.Sprint(*p.Num())
			}
			fmt.Printf("%-4s %-9s %-30s %s\n", num, p.Status(), p.ID(), p.Title())
		}
		return nil
	},
}

func init() {
	pageCmd.AddCommand(pageCreateCmd)
	pageCreateCmd.Flags().StringP("parent", "p", "", "Parent page id")
	pageCreateCmd.Flags().StringP("template", "t", "", "Template name")
	pageCreateCmd.Flags().Bool("draft", false, "Create as draft")
	pageCreateCmd.Flags().Int("num", 0, "Sorting number; makes the page listed")
	pageCreateCmd.Flags().StringArrayP("field", "f", nil, "Content field as key=value (repeatable)")

	pageCmd.AddCommand(pageUpdateCmd)
	pageUpdateCmd.Flags().StringArrayP("field", "f", nil, "Content field as key=value (repeatable)")

	pageCmd.AddCommand(pageSlugCmd)
	pageCmd.AddCommand(pageStatusCmd)
	pageStatusCmd.Flags().Int("position", 0, "Position among listed siblings")
	pageCmd.AddCommand(pageTitleCmd)
	pageCmd.AddCommand(pageTemplateCmd)

	pageCmd.AddCommand(pageDeleteCmd)
	pageDeleteCmd.Flags().Bool("force", false, "Delete children too")
	pageDeleteCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")

	pageCmd.AddCommand(pageGetCmd)
	pageCmd.AddCommand(pageListCmd)
	pageListCmd.Flags().Bool("drafts", false, "List drafts instead")
}
