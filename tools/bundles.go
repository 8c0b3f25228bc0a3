package tools

func init() {
	MustRegisterBundle("sql", "SQL statement execution and warehouse management", []string{
		"execute_statement",
		"get_statement",
		"fetch_statement_result",
		"cancel_statement_execution",
		"execute_statements_batch",
		"list_resume_cursors",
		"get_resume_cursor",
		"delete_resume_cursor",
		"list_warehouses",
		"get_warehouse",
		"start_warehouse",
		"stop_warehouse",
	})
	MustRegisterBundle("compute", "Cluster lifecycle management", []string{
		"list_clusters",
		"get_cluster",
		"create_cluster",
		"start_cluster",
		"terminate_cluster",
	})
	MustRegisterBundle("jobs", "Job and job run management", []string{
		"list_jobs",
		"get_job",
		"run_job_now",
		"list_job_runs",
		"get_job_run",
		"delete_job",
	})
	MustRegisterBundle("catalog", "Unity Catalog management", []string{
		"list_catalogs",
		"get_catalog",
		"create_catalog",
		"delete_catalog",
		"list_schemas",
		"get_schema",
		"create_schema",
		"delete_schema",
		"list_tables",
		"get_table",
		"delete_table",
	})
	MustRegisterBundle("workspace", "Workspace files, DBFS, repos, and secrets", []string{
		"list_workspace_objects",
		"get_workspace_object_status",
		"export_workspace_object",
		"delete_workspace_object",
		"mkdirs_workspace",
		"list_dbfs_files",
		"get_dbfs_file_status",
		"read_dbfs_file",
		"delete_dbfs_path",
		"list_repos",
		"get_repo",
		"create_repo",
		"update_repo",
		"delete_repo",
		"list_secret_scopes",
		"list_secrets",
		"put_secret",
		"delete_secret",
	})
	MustRegisterBundle("pipelines", "Delta Live Tables pipelines and model serving", []string{
		"list_pipelines",
		"get_pipeline",
		"start_pipeline_update",
		"stop_pipeline",
		"list_serving_endpoints",
		"get_serving_endpoint",
		"query_serving_endpoint",
	})
	MustRegisterBundle("account", "Account-level administration", []string{
		"list_account_workspaces",
		"get_account_workspace",
		"list_account_metastores",
		"list_account_users",
		"list_account_groups",
		"list_account_service_principals",
	})
}
