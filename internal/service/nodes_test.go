package service

import (
	"context"
	"math/rand"
	"sync"
	"testing"

	"rental-registry/internal/apperror"

	"github.com/stretchr/testify/require"
)

func TestCreateNodeAndQueryHierarchy(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	a := mustNode(t, reg, "Building A", nil)
	b := mustNode(t, reg, "Apartment 1", &a.ID)
	require.Equal(t, 0, a.Level)
	require.Equal(t, 1, b.Level)
	require.Equal(t, a.ID, *b.ParentID)

	level, err := reg.Level(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, 1, level)

	root, err := reg.Root(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, a.ID, root)

	chain, err := reg.Ancestors(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, []uint{b.ID, a.ID}, chain)

	desc, err := reg.Descendants(ctx, a.ID, true)
	require.NoError(t, err)
	require.ElementsMatch(t, []uint{a.ID, b.ID}, desc)
}

func TestMoveNodeRejectsCycle(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	a := mustNode(t, reg, "A", nil)
	b := mustNode(t, reg, "B", &a.ID)

	_, err := reg.MoveNode(ctx, a.ID, &b.ID)
	requireCode(t, err, apperror.CodeCircularReference)

	_, err = reg.MoveNode(ctx, a.ID, &a.ID)
	requireCode(t, err, apperror.CodeCircularReference)

	got, err := reg.GetNode(ctx, a.ID)
	require.NoError(t, err)
	require.Nil(t, got.ParentID)
	got, err = reg.GetNode(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, a.ID, *got.ParentID)
}

func TestConcurrentCrossMovesCannotFormCycle(t *testing.T) {
	checkConcurrentCrossMoves(t, newTestRegistry(t))
}

// checkConcurrentCrossMoves races A under B against B under A. Each move alone is legal;
// together they would close a cycle, so exactly one must win.
func checkConcurrentCrossMoves(t *testing.T, reg *Registry) {
	t.Helper()
	ctx := context.Background()

	for round := 0; round < 5; round++ {
		a := mustNode(t, reg, "A", nil)
		b := mustNode(t, reg, "B", nil)

		moves := [][2]uint{{a.ID, b.ID}, {b.ID, a.ID}}
		errs := make([]error, len(moves))
		start := make(chan struct{})
		var wg sync.WaitGroup
		for i, move := range moves {
			wg.Add(1)
			go func(i int, nodeID, parentID uint) {
				defer wg.Done()
				<-start
				_, errs[i] = reg.MoveNode(ctx, nodeID, &parentID)
			}(i, move[0], move[1])
		}
		close(start)
		wg.Wait()

		var succeeded, rejected int
		for _, err := range errs {
			switch {
			case err == nil:
				succeeded++
			case apperror.Is(err, apperror.CodeCircularReference):
				rejected++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		require.Equal(t, 1, succeeded)
		require.Equal(t, 1, rejected)

		for _, id := range []uint{a.ID, b.ID} {
			_, err := reg.Root(ctx, id)
			require.NoError(t, err)
		}
	}
}

func TestMoveNodeReparentsAndDetaches(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	a := mustNode(t, reg, "A", nil)
	b := mustNode(t, reg, "B", nil)
	c := mustNode(t, reg, "C", &a.ID)

	moved, err := reg.MoveNode(ctx, c.ID, &b.ID)
	require.NoError(t, err)
	require.Equal(t, b.ID, *moved.ParentID)
	require.Equal(t, 1, moved.Level)

	moved, err = reg.MoveNode(ctx, c.ID, nil)
	require.NoError(t, err)
	require.Nil(t, moved.ParentID)
	require.Equal(t, 0, moved.Level)
}

func TestCreateNodeValidation(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	_, err := reg.CreateNode(ctx, CreateNodeInput{Name: "   "})
	requireCode(t, err, apperror.CodeValidation)

	_, err = reg.CreateNode(ctx, CreateNodeInput{Name: "orphan", ParentID: uintPtr(404)})
	requireCode(t, err, apperror.CodeNotFound)
}

func TestUpdateNodeRenameKeepsParent(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	a := mustNode(t, reg, "A", nil)
	b := mustNode(t, reg, "B", &a.ID)

	name := "  B renamed "
	updated, err := reg.UpdateNode(ctx, b.ID, UpdateNodeInput{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "B renamed", updated.Name)
	require.Equal(t, a.ID, *updated.ParentID)

	_, err = reg.UpdateNode(ctx, 404, UpdateNodeInput{Name: &name})
	requireCode(t, err, apperror.CodeNotFound)
}

func TestDeleteNodeOrphansChildren(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	a := mustNode(t, reg, "A", nil)
	b := mustNode(t, reg, "B", &a.ID)
	c := mustNode(t, reg, "C", &b.ID)
	d := mustNode(t, reg, "D", &c.ID)

	require.NoError(t, reg.DeleteNode(ctx, b.ID))

	_, err := reg.GetNode(ctx, b.ID)
	requireCode(t, err, apperror.CodeNotFound)

	got, err := reg.GetNode(ctx, c.ID)
	require.NoError(t, err)
	require.Nil(t, got.ParentID)
	require.Equal(t, 0, got.Level)

	level, err := reg.Level(ctx, d.ID)
	require.NoError(t, err)
	require.Equal(t, 1, level)

	desc, err := reg.Descendants(ctx, a.ID, false)
	require.NoError(t, err)
	require.Empty(t, desc)

	requireCode(t, reg.DeleteNode(ctx, b.ID), apperror.CodeNotFound)
}

func TestDeleteNodeWithAssignmentsIsRejected(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	a := mustNode(t, reg, "A", nil)
	holder := mustHolder(t, reg, "H1")
	_, err := reg.CreateAssignment(ctx, CreateAssignmentInput{NodeID: a.ID, HolderID: holder.ID, StartDate: day("2024-01-01")})
	require.NoError(t, err)

	requireCode(t, reg.DeleteNode(ctx, a.ID), apperror.CodeConflict)
	_, err = reg.GetNode(ctx, a.ID)
	require.NoError(t, err)
}

func TestGetNodeTree(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)

	building := mustNode(t, reg, "Building", nil)
	floor := mustNode(t, reg, "Floor 1", &building.ID)
	aptB := mustNode(t, reg, "Apt B", &floor.ID)
	aptA := mustNode(t, reg, "Apt A", &floor.ID)
	mustNode(t, reg, "Room", &aptA.ID)

	holder := mustHolder(t, reg, "H1")
	_, err := reg.CreateAssignment(ctx, CreateAssignmentInput{NodeID: aptB.ID, HolderID: holder.ID, StartDate: day("2024-01-01")})
	require.NoError(t, err)

	tree, err := reg.GetNodeTree(ctx, building.ID, GetNodeOptions{Depth: 2, IncludeAssignments: true})
	require.NoError(t, err)
	require.Equal(t, building.ID, tree.Node.ID)
	require.NotNil(t, tree.Assignments)
	require.Empty(t, *tree.Assignments)
	require.Len(t, tree.Children, 1)

	floorTree := tree.Children[0]
	require.Equal(t, 1, floorTree.Node.Level)
	require.Len(t, floorTree.Children, 2)
	require.Equal(t, "Apt A", floorTree.Children[0].Node.Name)
	require.Equal(t, "Apt B", floorTree.Children[1].Node.Name)
	require.Empty(t, floorTree.Children[0].Children, "depth 2 stops above the room")
	require.Len(t, *floorTree.Children[1].Assignments, 1)
	require.Equal(t, 2, floorTree.Children[1].Node.Level)

	flat, err := reg.GetNodeTree(ctx, floor.ID, GetNodeOptions{Depth: 0})
	require.NoError(t, err)
	require.Empty(t, flat.Children)
	require.Nil(t, flat.Assignments)
	require.Equal(t, 1, flat.Node.Level)

	_, err = reg.GetNodeTree(ctx, building.ID, GetNodeOptions{Depth: 6})
	requireCode(t, err, apperror.CodeValidation)
	_, err = reg.GetNodeTree(ctx, 404, GetNodeOptions{Depth: 1})
	requireCode(t, err, apperror.CodeNotFound)
}

func TestRandomMovesNeverFormCycles(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t)
	rng := rand.New(rand.NewSource(42))

	const nodeCount = 12
	ids := make([]uint, 0, nodeCount)
	for i := 0; i < nodeCount; i++ {
		var parent *uint
		if i > 0 && rng.Intn(3) > 0 {
			parent = &ids[rng.Intn(len(ids))]
		}
		ids = append(ids, mustNode(t, reg, "n", parent).ID)
	}

	for i := 0; i < 80; i++ {
		node := ids[rng.Intn(len(ids))]
		var parent *uint
		if rng.Intn(5) > 0 {
			parent = &ids[rng.Intn(len(ids))]
		}
		_, err := reg.MoveNode(ctx, node, parent)
		if err != nil {
			requireCode(t, err, apperror.CodeCircularReference)
		}
	}

	for _, id := range ids {
		node, err := reg.GetNode(ctx, id)
		require.NoError(t, err)
		require.Less(t, node.Level, nodeCount)

		_, err = reg.Root(ctx, id)
		require.NoError(t, err)

		if node.ParentID == nil {
			require.Equal(t, 0, node.Level)
			continue
		}
		parentLevel, err := reg.Level(ctx, *node.ParentID)
		require.NoError(t, err)
		require.Equal(t, parentLevel+1, node.Level)
	}

	for _, id := range ids {
		first, err := reg.Descendants(ctx, id, true)
		require.NoError(t, err)
		second, err := reg.Descendants(ctx, id, true)
		require.NoError(t, err)
		require.Equal(t, first, second)
		require.NotContains(t, first[1:], id)
	}
}
