package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whichguy/sheetsql/query"
	"github.com/whichguy/sheetsql/sheets"
)

func usersTable() map[string][][]interface{} {
	return map[string][][]interface{}{
		"users": {
			{"Name", "Age", "City"},
			{"Alice", 30.0, "Berlin"},
			{"Bob", 25.0, "Paris"},
			{"Carol", 35.0, "Berlin"},
		},
	}
}

func execute(t *testing.T, req Request) *Result {
	t.Helper()
	res, err := New(nil, nil).Execute(context.Background(), req)
	require.NoError(t, err)
	return res
}

func dataTable(t *testing.T, res *Result) *sheets.DataTable {
	t.Helper()
	dt, ok := res.Data.(*sheets.DataTable)
	require.True(t, ok, "Data = %T, want *sheets.DataTable", res.Data)
	return dt
}

func rowValues(dt *sheets.DataTable) [][]interface{} {
	rows := make([][]interface{}, len(dt.Rows))
	for i, row := range dt.Rows {
		cells := make([]interface{}, len(row.C))
		for j, cell := range row.C {
			cells[j] = cell.V
		}
		rows[i] = cells
	}
	return rows
}

func TestExecute_SelectWhere(t *testing.T) {
	res := execute(t, Request{
		Statement:   "SELECT * FROM :users WHERE Age > 26",
		DataSources: usersTable(),
	})

	assert.Equal(t, "SELECT", res.Operation)
	dt := dataTable(t, res)
	assert.Equal(t, [][]interface{}{
		{"Alice", 30.0, "Berlin"},
		{"Carol", 35.0, "Berlin"},
	}, rowValues(dt))
	assert.Equal(t, "Name", dt.Cols[0].Label)
	assert.Equal(t, "number", dt.Cols[1].Type)
}

func TestExecute_SelectDefaultsToSoleDataSource(t *testing.T) {
	res := execute(t, Request{
		Statement:   "SELECT Name WHERE Age > 26 AND City = 'Berlin'",
		DataSources: usersTable(),
	})

	dt := dataTable(t, res)
	assert.Equal(t, [][]interface{}{{"Alice"}, {"Carol"}}, rowValues(dt))
}

func TestExecute_SelectProjectionAndExpression(t *testing.T) {
	res := execute(t, Request{
		Statement:   "SELECT Name, Age * 2 AS doubled FROM :users WHERE Name = 'Bob'",
		DataSources: usersTable(),
	})

	dt := dataTable(t, res)
	require.Len(t, dt.Cols, 2)
	assert.Equal(t, "doubled", dt.Cols[1].Label)
	assert.Equal(t, [][]interface{}{{"Bob", 50.0}}, rowValues(dt))
}

func TestExecute_SelectOrderLimitOffset(t *testing.T) {
	res := execute(t, Request{
		Statement:   "SELECT Name FROM :users WHERE TRUE ORDER BY Age DESC LIMIT 2 OFFSET 1",
		DataSources: usersTable(),
	})

	dt := dataTable(t, res)
	assert.Equal(t, [][]interface{}{{"Alice"}, {"Bob"}}, rowValues(dt))
}

func TestExecute_SelectMetadata(t *testing.T) {
	res := execute(t, Request{
		Statement:      "SELECT * FROM :users",
		ReturnMetadata: true,
		DataSources:    usersTable(),
	})

	require.NotNil(t, res.Metadata)
	assert.Equal(t, "dataSources", res.Metadata.Source)
	assert.Equal(t, 3, res.Metadata.RowCount)
	assert.Equal(t, 3, res.Metadata.ColumnCount)
}

func TestExecute_GroupByHaving(t *testing.T) {
	res := execute(t, Request{
		Statement:   "SELECT City, COUNT(*) FROM :users GROUP BY City HAVING COUNT(*) > 1",
		DataSources: usersTable(),
	})

	dt := dataTable(t, res)
	assert.Equal(t, [][]interface{}{{"Berlin", 2.0}}, rowValues(dt))
	assert.Equal(t, "COUNT(*)", dt.Cols[1].Label)
}

func TestExecute_AggregatesWithoutGroupBy(t *testing.T) {
	res := execute(t, Request{
		Statement:   "SELECT COUNT(*), SUM(Age), AVG(Age), MIN(Name), MAX(Age) FROM :users",
		DataSources: usersTable(),
	})

	dt := dataTable(t, res)
	assert.Equal(t, [][]interface{}{{3.0, 90.0, 30.0, "Alice", 35.0}}, rowValues(dt))
}

func TestExecute_GroupByOrderByAggregate(t *testing.T) {
	res := execute(t, Request{
		Statement:   "SELECT City, SUM(Age) FROM :users GROUP BY City ORDER BY SUM(Age) DESC",
		DataSources: usersTable(),
	})

	dt := dataTable(t, res)
	assert.Equal(t, [][]interface{}{
		{"Berlin", 65.0},
		{"Paris", 25.0},
	}, rowValues(dt))
}

func TestExecute_AggregateIgnoresNullsAndNonNumeric(t *testing.T) {
	res := execute(t, Request{
		Statement: "SELECT COUNT(B), SUM(B), AVG(B) FROM :t",
		DataSources: map[string][][]interface{}{
			"t": {
				{"Name", "Score"},
				{"a", 10.0},
				{"b", nil},
				{"c", "n/a"},
				{"d", 20.0},
			},
		},
	})

	dt := dataTable(t, res)
	// COUNT counts non-null cells; SUM/AVG fold only numeric ones.
	assert.Equal(t, [][]interface{}{{3.0, 30.0, 15.0}}, rowValues(dt))
}

func TestExecute_NonAggregatedColumnOutsideGroupBy(t *testing.T) {
	_, err := New(nil, nil).Execute(context.Background(), Request{
		Statement:   "SELECT Name, COUNT(*) FROM :users GROUP BY City",
		DataSources: usersTable(),
	})
	var validation *query.ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestExecute_InnerJoin(t *testing.T) {
	sources := map[string][][]interface{}{
		"users": {
			{"id", "name"},
			{1.0, "Alice"},
			{2.0, "Bob"},
			{3.0, "Carol"},
		},
		"orders": {
			{"user_id", "total"},
			{1.0, 100.0},
			{1.0, 50.0},
			{3.0, 75.0},
		},
	}

	res := execute(t, Request{
		Statement:   "SELECT u.name, o.total FROM :users u JOIN :orders o ON u.id = o.user_id WHERE TRUE ORDER BY o.total",
		DataSources: sources,
	})

	dt := dataTable(t, res)
	assert.Equal(t, [][]interface{}{
		{"Alice", 50.0},
		{"Carol", 75.0},
		{"Alice", 100.0},
	}, rowValues(dt))
}

func TestExecute_JoinKeysCaseInsensitive(t *testing.T) {
	sources := map[string][][]interface{}{
		"users": {
			{"name", "city"},
			{"Alice", "Berlin"},
		},
		"logins": {
			{"user", "count"},
			{"ALICE", 4.0},
		},
	}

	res := execute(t, Request{
		Statement:   "SELECT u.city, l.count FROM :users u JOIN :logins l ON u.name = l.user",
		DataSources: sources,
	})

	dt := dataTable(t, res)
	assert.Equal(t, [][]interface{}{{"Berlin", 4.0}}, rowValues(dt))
}

func TestExecute_JoinNullKeysMatchEachOther(t *testing.T) {
	sources := map[string][][]interface{}{
		"users": {
			{"id", "name"},
			{nil, "Unassigned"},
			{1.0, "Alice"},
		},
		"orders": {
			{"user_id", "total"},
			{"", 9.0},
			{2.0, 50.0},
		},
	}

	res := execute(t, Request{
		Statement:   "SELECT u.name, o.total FROM :users u JOIN :orders o ON u.id = o.user_id",
		DataSources: sources,
	})

	// A nil key on one side joins the empty string on the other; a valued
	// key never joins a null one.
	dt := dataTable(t, res)
	assert.Equal(t, [][]interface{}{{"Unassigned", 9.0}}, rowValues(dt))
}

func TestExecute_LeftJoinPadsUnmatched(t *testing.T) {
	sources := map[string][][]interface{}{
		"users": {
			{"id", "name"},
			{1.0, "Alice"},
			{2.0, "Bob"},
		},
		"orders": {
			{"user_id", "total"},
			{1.0, 100.0},
		},
	}

	res := execute(t, Request{
		Statement:   "SELECT u.name, o.total FROM :users u LEFT JOIN :orders o ON u.id = o.user_id",
		DataSources: sources,
	})

	dt := dataTable(t, res)
	assert.Equal(t, [][]interface{}{
		{"Alice", 100.0},
		{"Bob", nil},
	}, rowValues(dt))
}

func TestExecute_RightJoinPadsUnmatched(t *testing.T) {
	sources := map[string][][]interface{}{
		"users": {
			{"id", "name"},
			{1.0, "Alice"},
		},
		"orders": {
			{"user_id", "total"},
			{1.0, 100.0},
			{9.0, 33.0},
		},
	}

	res := execute(t, Request{
		Statement:   "SELECT u.name, o.total FROM :users u RIGHT JOIN :orders o ON u.id = o.user_id",
		DataSources: sources,
	})

	dt := dataTable(t, res)
	assert.Equal(t, [][]interface{}{
		{"Alice", 100.0},
		{nil, 33.0},
	}, rowValues(dt))
}

func TestExecute_UpdateVirtual(t *testing.T) {
	res := execute(t, Request{
		Statement: "UPDATE SET Age = 99 WHERE Name = 'Bob'",
		DataSources: map[string][][]interface{}{
			"users": {
				{"Name", "Age"},
				{"Alice", 30.0},
				{"Bob", 25.0},
			},
		},
	})

	assert.Equal(t, "UPDATE", res.Operation)
	assert.Equal(t, 1, res.UpdatedRows)
	assert.Equal(t, []int{2}, res.RowNumbers)
	assert.Equal(t, [][]interface{}{
		{"Name", "Age"},
		{"Alice", 30.0},
		{"Bob", 99.0},
	}, res.Data)
}

func TestExecute_UpdateVirtualExpression(t *testing.T) {
	res := execute(t, Request{
		Statement:   "UPDATE SET Age = Age + 1 WHERE TRUE",
		DataSources: usersTable(),
	})

	assert.Equal(t, 3, res.UpdatedRows)
	data := res.Data.([][]interface{})
	assert.Equal(t, 31.0, data[1][1])
	assert.Equal(t, 26.0, data[2][1])
	assert.Equal(t, 36.0, data[3][1])
}

func TestExecute_UpdateNamedTargetBeforeSet(t *testing.T) {
	res := execute(t, Request{
		Statement: "UPDATE :scores SET Points = 0 WHERE TRUE",
		DataSources: map[string][][]interface{}{
			"users":  {{"Name"}, {"Alice"}},
			"scores": {{"Player", "Points"}, {"Alice", 12.0}},
		},
	})

	assert.Equal(t, 1, res.UpdatedRows)
	data := res.Data.([][]interface{})
	assert.Equal(t, []interface{}{"Alice", 0.0}, data[1])
}

func TestExecute_UpdateRequiresWhere(t *testing.T) {
	_, err := New(nil, nil).Execute(context.Background(), Request{
		Statement:   "UPDATE SET Age = 99",
		DataSources: usersTable(),
	})
	var validation *query.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Contains(t, err.Error(), "WHERE TRUE")
}

func TestExecute_UpdateOrderByLimit(t *testing.T) {
	res := execute(t, Request{
		Statement:   "UPDATE SET City = 'Rome' WHERE TRUE ORDER BY Age DESC LIMIT 1",
		DataSources: usersTable(),
	})

	assert.Equal(t, 1, res.UpdatedRows)
	// Carol has the highest age and sits at array index 3.
	assert.Equal(t, []int{3}, res.RowNumbers)
	data := res.Data.([][]interface{})
	assert.Equal(t, "Rome", data[3][2])
	assert.Equal(t, "Berlin", data[1][2])
}

func TestExecute_DeleteVirtual(t *testing.T) {
	res := execute(t, Request{
		Statement:   "DELETE FROM :users WHERE Age < 26 LIMIT 1",
		DataSources: usersTable(),
	})

	assert.Equal(t, "DELETE", res.Operation)
	assert.Equal(t, 1, res.DeletedRows)
	assert.Equal(t, []int{2}, res.RowNumbers)
	assert.Equal(t, [][]interface{}{
		{"Name", "Age", "City"},
		{"Alice", 30.0, "Berlin"},
		{"Carol", 35.0, "Berlin"},
	}, res.Data)
}

func TestExecute_DeleteOrderByLimit(t *testing.T) {
	res := execute(t, Request{
		Statement:   "DELETE WHERE TRUE ORDER BY Age DESC LIMIT 1",
		DataSources: usersTable(),
	})

	// The oldest row goes, everything else stays.
	assert.Equal(t, 1, res.DeletedRows)
	assert.Equal(t, [][]interface{}{
		{"Name", "Age", "City"},
		{"Alice", 30.0, "Berlin"},
		{"Bob", 25.0, "Paris"},
	}, res.Data)
}

func TestExecute_InsertVirtualPositional(t *testing.T) {
	res := execute(t, Request{
		Statement:   "INSERT INTO :users VALUES ('Dave', 28, 'Oslo'), ('Eve', 41, 'Rome')",
		DataSources: usersTable(),
	})

	assert.Equal(t, "INSERT", res.Operation)
	assert.Equal(t, 2, res.UpdatedRows)
	assert.Equal(t, []int{4, 5}, res.RowNumbers)
	data := res.Data.([][]interface{})
	require.Len(t, data, 6)
	assert.Equal(t, []interface{}{"Dave", 28.0, "Oslo"}, data[4])
	assert.Equal(t, []interface{}{"Eve", 41.0, "Rome"}, data[5])
}

func TestExecute_InsertVirtualNamedColumns(t *testing.T) {
	res := execute(t, Request{
		Statement:   "INSERT INTO :users (Age, Name) VALUES (52, 'Frank')",
		DataSources: usersTable(),
	})

	data := res.Data.([][]interface{})
	require.Len(t, data, 5)
	assert.Equal(t, []interface{}{"Frank", 52.0, nil}, data[4])
	assert.Empty(t, res.Hints)
}

func TestExecute_InsertShortTupleHints(t *testing.T) {
	res := execute(t, Request{
		Statement:   "INSERT INTO :users VALUES ('Grace')",
		DataSources: usersTable(),
	})

	require.Len(t, res.Hints, 1)
	assert.Contains(t, res.Hints[0], "1 of 3 columns")
}

func TestExecute_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{
			name: "empty statement",
			req:  Request{DataSources: usersTable()},
		},
		{
			name: "unknown operation",
			req:  Request{Statement: "DROP TABLE users", DataSources: usersTable()},
		},
		{
			name: "unknown virtual table",
			req:  Request{Statement: "SELECT * FROM :missing", DataSources: usersTable()},
		},
		{
			name: "no target at all",
			req:  Request{Statement: "UPDATE SET A = 1 WHERE TRUE"},
		},
		{
			name: "ambiguous data sources",
			req: Request{
				Statement: "SELECT * WHERE A = 1",
				DataSources: map[string][][]interface{}{
					"a": {{"X"}}, "b": {{"Y"}},
				},
			},
		},
		{
			name: "sheet table without client",
			req:  Request{Statement: "SELECT * FROM Sheet1!A1:C10 WHERE A = 1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(nil, nil).Execute(context.Background(), tt.req)
			var validation *query.ValidationError
			assert.ErrorAs(t, err, &validation)
		})
	}
}
