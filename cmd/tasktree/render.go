package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	ltree "github.com/charmbracelet/lipgloss/tree"

	"tasktree/backend/internal/models"
	"tasktree/backend/internal/tree"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	doneStyle  = lipgloss.NewStyle().Strikethrough(true).Foreground(lipgloss.Color("8"))
	idStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)

func itemLabel(it *models.Item) string {
	mark := "[ ]"
	content := it.Content
	if it.Completed {
		mark = "[x]"
		content = doneStyle.Render(content)
	}
	return fmt.Sprintf("%s %s %s", mark, content, idStyle.Render(fmt.Sprintf("#%d", it.ID)))
}

// renderTree はリストの木を罫線付きの文字列にします。
// parents[d] は深さ d のノードの親で、parents[0] はリスト自身です。
func renderTree(lt *models.ListTree) string {
	root := ltree.Root(titleStyle.Render(fmt.Sprintf("%s #%d", lt.List.Title, lt.List.ID))).
		Enumerator(ltree.RoundedEnumerator)

	parents := []*ltree.Tree{root}
	tree.Walk(lt.Items, func(n *models.TreeNode, depth int) bool {
		node := ltree.Root(itemLabel(&n.Item))
		parents[depth].Child(node)
		parents = append(parents[:depth+1], node)
		return true
	})
	return root.String()
}
