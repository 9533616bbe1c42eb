package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"tasktree/backend/internal/database"
	"tasktree/backend/internal/models"
	"tasktree/backend/internal/tree"
)

func listsCommand(logger *log.Logger) *cli.Command {
	return &cli.Command{
		Name:  "lists",
		Usage: "Manage lists",
		Commands: []*cli.Command{
			{
				Name:  "ls",
				Usage: "Show all lists",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withSession(ctx, cmd, logger, func(ctx context.Context, s *session) error {
						overview, err := s.tasks.GetOverview(ctx, s.owner)
						if err != nil {
							return err
						}
						for _, lt := range overview {
							fmt.Fprintf(s.out, "%d\t%s\t%d items\n", lt.List.ID, lt.List.Title, tree.Count(lt.Items))
						}
						return nil
					})
				},
			},
			{
				Name:      "add",
				Usage:     "Create a list",
				ArgsUsage: "<title>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withSession(ctx, cmd, logger, func(ctx context.Context, s *session) error {
						list, err := s.tasks.CreateList(ctx, s.owner, strings.Join(cmd.Args().Slice(), " "))
						if err != nil {
							return err
						}
						fmt.Fprintf(s.out, "created list %d\n", list.ID)
						return nil
					})
				},
			},
			{
				Name:      "rm",
				Usage:     "Delete a list and all of its items",
				ArgsUsage: "<list-id>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id, err := argID(cmd, 0, "list id")
					if err != nil {
						return err
					}
					return withSession(ctx, cmd, logger, func(ctx context.Context, s *session) error {
						if err := s.tasks.DeleteList(ctx, s.owner, id); err != nil {
							return err
						}
						fmt.Fprintf(s.out, "deleted list %d\n", id)
						return nil
					})
				},
			},
		},
	}
}

func itemsCommand(logger *log.Logger) *cli.Command {
	return &cli.Command{
		Name:  "items",
		Usage: "Manage items",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Create an item",
				ArgsUsage: "<list-id> <content>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "parent", Aliases: []string{"p"}, Usage: "Parent item id"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					listID, err := argID(cmd, 0, "list id")
					if err != nil {
						return err
					}
					in := models.CreateItemInput{
						ListID:   listID,
						Content:  strings.Join(cmd.Args().Tail(), " "),
						ParentID: optionalID(cmd, "parent"),
					}
					return withSession(ctx, cmd, logger, func(ctx context.Context, s *session) error {
						item, err := s.tasks.CreateItem(ctx, s.owner, in)
						if err != nil {
							return err
						}
						fmt.Fprintf(s.out, "created item %d\n", item.ID)
						return nil
					})
				},
			},
			{
				Name:      "edit",
				Usage:     "Change content or completion of an item",
				ArgsUsage: "<item-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "content", Usage: "New content"},
					&cli.BoolFlag{Name: "done", Usage: "Set completion (--done=false to reopen)"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id, err := argID(cmd, 0, "item id")
					if err != nil {
						return err
					}
					var in models.UpdateItemInput
					if cmd.IsSet("content") {
						content := cmd.String("content")
						in.Content = &content
					}
					if cmd.IsSet("done") {
						done := cmd.Bool("done")
						in.Completed = &done
					}
					return withSession(ctx, cmd, logger, func(ctx context.Context, s *session) error {
						item, err := s.tasks.UpdateItem(ctx, s.owner, id, in)
						if err != nil {
							return err
						}
						fmt.Fprintln(s.out, itemLabel(item))
						return nil
					})
				},
			},
			{
				Name:      "mv",
				Usage:     "Move an item (with its subtree) under another parent or list",
				ArgsUsage: "<item-id>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "parent", Aliases: []string{"p"}, Usage: "New parent item id (omit for root)"},
					&cli.IntFlag{Name: "list", Aliases: []string{"l"}, Usage: "Target list id"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id, err := argID(cmd, 0, "item id")
					if err != nil {
						return err
					}
					in := models.MoveItemInput{
						ParentID: optionalID(cmd, "parent"),
						ListID:   optionalID(cmd, "list"),
					}
					return withSession(ctx, cmd, logger, func(ctx context.Context, s *session) error {
						item, err := s.tasks.MoveItem(ctx, s.owner, id, in)
						if err != nil {
							return err
						}
						fmt.Fprintf(s.out, "moved item %d to list %d\n", item.ID, item.ListID)
						return nil
					})
				},
			},
			{
				Name:      "done",
				Usage:     "Mark an item completed",
				ArgsUsage: "<item-id>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id, err := argID(cmd, 0, "item id")
					if err != nil {
						return err
					}
					return withSession(ctx, cmd, logger, func(ctx context.Context, s *session) error {
						item, err := s.tasks.CompleteItem(ctx, s.owner, id)
						if err != nil {
							return err
						}
						fmt.Fprintln(s.out, itemLabel(item))
						return nil
					})
				},
			},
			{
				Name:      "rm",
				Usage:     "Delete an item and all of its descendants",
				ArgsUsage: "<item-id>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id, err := argID(cmd, 0, "item id")
					if err != nil {
						return err
					}
					return withSession(ctx, cmd, logger, func(ctx context.Context, s *session) error {
						if err := s.tasks.DeleteItem(ctx, s.owner, id); err != nil {
							return err
						}
						fmt.Fprintf(s.out, "deleted item %d\n", id)
						return nil
					})
				},
			},
		},
	}
}

func treeCommand(logger *log.Logger) *cli.Command {
	return &cli.Command{
		Name:      "tree",
		Usage:     "Render a list as a tree (all lists when no id is given)",
		ArgsUsage: "[list-id]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			var listID int64
			if cmd.Args().Present() {
				id, err := argID(cmd, 0, "list id")
				if err != nil {
					return err
				}
				listID = id
			}
			return withSession(ctx, cmd, logger, func(ctx context.Context, s *session) error {
				if listID != 0 {
					lt, err := s.tasks.GetTree(ctx, s.owner, listID)
					if err != nil {
						return err
					}
					fmt.Fprintln(s.out, renderTree(lt))
					return nil
				}
				overview, err := s.tasks.GetOverview(ctx, s.owner)
				if err != nil {
					return err
				}
				for _, lt := range overview {
					fmt.Fprintln(s.out, renderTree(lt))
				}
				return nil
			})
		},
	}
}

func migrateCommand(logger *log.Logger) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create or upgrade the database schema",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			db, dialect, err := openSQLite(cmd.String("db"))
			if err != nil {
				return err
			}
			defer db.Close()
			applied, err := database.RunMigrations(ctx, db, dialect)
			if err != nil {
				return err
			}
			logger.Info("migrations applied", "versions", applied, "db", cmd.String("db"))
			return nil
		},
	}
}

// optionalID はフラグが正の値で指定されていればそのポインタを返します。
func optionalID(cmd *cli.Command, name string) *int64 {
	if !cmd.IsSet(name) || cmd.Int(name) <= 0 {
		return nil
	}
	id := int64(cmd.Int(name))
	return &id
}
